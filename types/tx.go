package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tendermint/tendermint/crypto"
	"github.com/tendermint/tendermint/crypto/ed25519"
)

// Tx is the signed envelope every transaction is wrapped in. It is encoded
// as JSON on the wire.
type Tx struct {
	Type      string          `json:"type"`
	Msg       json.RawMessage `json:"msg"`
	Funds     uint64          `json:"funds"`
	Sequence  uint64          `json:"sequence"`
	PubKey    []byte          `json:"pub_key"`
	Signature []byte          `json:"signature"`
}

// signDoc is the part of a Tx covered by the signature.
type signDoc struct {
	Type     string          `json:"type"`
	Msg      json.RawMessage `json:"msg"`
	Funds    uint64          `json:"funds"`
	Sequence uint64          `json:"sequence"`
}

// NewTx wraps msg in an unsigned Tx.
func NewTx(msg Msg, funds, sequence uint64) (*Tx, error) {
	bz, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Type(), err)
	}
	return &Tx{
		Type:     msg.Type(),
		Msg:      bz,
		Funds:    funds,
		Sequence: sequence,
	}, nil
}

// DecodeTx parses a JSON encoded Tx.
func DecodeTx(bz []byte) (*Tx, error) {
	tx := new(Tx)
	if err := json.Unmarshal(bz, tx); err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	return tx, nil
}

// Marshal encodes the Tx for broadcasting.
func (tx *Tx) Marshal() ([]byte, error) {
	return json.Marshal(tx)
}

// SignBytes returns the canonical bytes the signature covers.
func (tx *Tx) SignBytes() []byte {
	bz, err := json.Marshal(signDoc{
		Type:     tx.Type,
		Msg:      tx.Msg,
		Funds:    tx.Funds,
		Sequence: tx.Sequence,
	})
	if err != nil {
		panic(err)
	}
	return bz
}

// Sign signs the Tx with an ed25519 key and records its public key.
func (tx *Tx) Sign(priv ed25519.PrivKey) error {
	sig, err := priv.Sign(tx.SignBytes())
	if err != nil {
		return err
	}
	tx.PubKey = priv.PubKey().Bytes()
	tx.Signature = sig
	return nil
}

// Signer returns the address of the key that signed the Tx.
func (tx *Tx) Signer() (crypto.Address, error) {
	if len(tx.PubKey) != ed25519.PubKeySize {
		return nil, ErrInvalid("pub_key", "expected %d bytes, got %d", ed25519.PubKeySize, len(tx.PubKey))
	}
	return ed25519.PubKey(tx.PubKey).Address(), nil
}

// GetMsg decodes the carried message.
func (tx *Tx) GetMsg() (Msg, error) {
	newMsg, ok := msgConstructors[tx.Type]
	if !ok {
		return nil, ErrInvalid("type", "unknown message type %q", tx.Type)
	}
	msg := newMsg()
	if err := json.Unmarshal(tx.Msg, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", tx.Type, err)
	}
	return msg, nil
}

// ValidateBasic verifies the signature and performs the stateless checks of
// the carried message.
func (tx *Tx) ValidateBasic() (Msg, error) {
	if len(tx.PubKey) != ed25519.PubKeySize {
		return nil, ErrInvalid("pub_key", "expected %d bytes, got %d", ed25519.PubKeySize, len(tx.PubKey))
	}
	if len(tx.Signature) != ed25519.SignatureSize {
		return nil, errors.New("invalid signature size")
	}
	if !ed25519.PubKey(tx.PubKey).VerifySignature(tx.SignBytes(), tx.Signature) {
		return nil, errors.New("signature verification failed")
	}
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, err
	}
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	return msg, nil
}
