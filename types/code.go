package types

import (
	"errors"
)

// CodeType is the ABCI response code of a transaction or query.
type CodeType = uint32

const (
	CodeTypeOK                CodeType = 0
	CodeTypeEncodingError     CodeType = 1
	CodeTypeValidationError   CodeType = 2
	CodeTypeUnauthorized      CodeType = 3
	CodeTypeStateError        CodeType = 4
	CodeTypeInsufficientFunds CodeType = 5
	CodeTypeReentrancy        CodeType = 6
	CodeTypeBadNonce          CodeType = 7
	CodeTypeUnknownError      CodeType = 8
)

var code2string = map[CodeType]string{
	CodeTypeOK:                "OK",
	CodeTypeEncodingError:     "Encoding error",
	CodeTypeValidationError:   "Validation error",
	CodeTypeUnauthorized:      "Unauthorized",
	CodeTypeStateError:        "State error",
	CodeTypeInsufficientFunds: "Insufficient funds",
	CodeTypeReentrancy:        "Reentrant call",
	CodeTypeBadNonce:          "Error bad nonce",
	CodeTypeUnknownError:      "Unknown error",
}

// HumanCode transforms code into a more humane format, such as "State error"
// instead of 4.
func HumanCode(code CodeType) string {
	s, ok := code2string[code]
	if !ok {
		return "Unknown code"
	}
	return s
}

// CodeFromError maps an execution error to its response code.
func CodeFromError(err error) CodeType {
	var (
		validationErr ValidationError
		authErr       AuthorizationError
		stateErr      StateError
		fundsErr      InsufficientFundsError
		reentrancyErr ReentrancyError
		nonceErr      BadNonceError
	)
	switch {
	case err == nil:
		return CodeTypeOK
	case errors.As(err, &reentrancyErr):
		return CodeTypeReentrancy
	case errors.As(err, &validationErr):
		return CodeTypeValidationError
	case errors.As(err, &authErr):
		return CodeTypeUnauthorized
	case errors.As(err, &stateErr):
		return CodeTypeStateError
	case errors.As(err, &fundsErr):
		return CodeTypeInsufficientFunds
	case errors.As(err, &nonceErr):
		return CodeTypeBadNonce
	}
	return CodeTypeUnknownError
}
