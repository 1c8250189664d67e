package core

import "errors"

// Kind classifies domain failures so the transport layer can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindDuplicateEmail
	KindInvalidCredentials
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindDuplicateEmail:
		return "duplicate_email"
	case KindInvalidCredentials:
		return "invalid_credentials"
	default:
		return "internal"
	}
}

// Error is a domain error whose Message is safe to show to end users.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func validation(message string) *Error {
	return newError(KindValidation, message)
}

var (
	ErrUnauthorized       = newError(KindUnauthorized, "Non autorisé")
	ErrCaseNotFound       = newError(KindNotFound, "Dossier non trouvé")
	ErrTaskNotFound       = newError(KindNotFound, "Tâche non trouvée")
	ErrDuplicateEmail     = newError(KindDuplicateEmail, "Un compte avec cet email existe déjà")
	ErrInvalidCredentials = newError(KindInvalidCredentials, "Email ou mot de passe incorrect")
)

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
