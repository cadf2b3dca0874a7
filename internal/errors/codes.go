// Package errors provides structured error handling with stable machine codes.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Currency errors
	CodeInvalidDenomination Code = "CURRENCY_INVALID_DENOMINATION"
	CodeIssuanceFailed      Code = "CURRENCY_ISSUANCE_FAILED"
	CodeNoteNotFound        Code = "CURRENCY_NOTE_NOT_FOUND"
	CodeNoteNotCirculating  Code = "CURRENCY_NOTE_NOT_CIRCULATING"

	// Vault location errors
	CodeLocationNameEmpty Code = "LOCATION_NAME_EMPTY"
	CodeLocationExists    Code = "LOCATION_ALREADY_EXISTS"
	CodeLocationNotFound  Code = "LOCATION_NOT_FOUND"
	CodeMainVaultExists   Code = "LOCATION_MAIN_VAULT_EXISTS"

	// Configuration errors
	CodeInvalidConfiguration Code = "CONFIG_INVALID"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// Reconciliation errors
	CodeFatalInconsistency Code = "FATAL_INCONSISTENCY"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidDenomination,
		CodeLocationNameEmpty,
		CodeInvalidConfiguration:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeNoteNotCirculating,
		CodeMainVaultExists:
		return codes.FailedPrecondition

	// AlreadyExists - uniqueness violations
	case CodeLocationExists:
		return codes.AlreadyExists

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeNoteNotFound,
		CodeLocationNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
