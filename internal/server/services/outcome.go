package services

import "github.com/dmitrijs2005/accountkeeper/internal/server/models"

// Outcome classifies the business result of an account operation. Expected
// conditions (missing user, guard violations) are outcomes, never errors.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeAlreadyExists
	OutcomeUsernameNotFound
	OutcomePasswordIncorrect
	OutcomePasswordExpired
	OutcomeOldPasswordIncorrect
	OutcomeSameAsOld
	OutcomeConfirmationMismatch
	OutcomeNoChange
	OutcomeLastAdminProtected
	OutcomeSelfDowngradeForbidden
	OutcomeSelfActionForbidden
	OutcomeUserNotFound
	OutcomeInvalidInput
)

var outcomeNames = map[Outcome]string{
	OutcomeOK:                     "OK",
	OutcomeAlreadyExists:          "AlreadyExists",
	OutcomeUsernameNotFound:       "UsernameNotFound",
	OutcomePasswordIncorrect:      "PasswordIncorrect",
	OutcomePasswordExpired:        "PasswordExpired",
	OutcomeOldPasswordIncorrect:   "OldPasswordIncorrect",
	OutcomeSameAsOld:              "SameAsOld",
	OutcomeConfirmationMismatch:   "ConfirmationMismatch",
	OutcomeNoChange:               "NoChange",
	OutcomeLastAdminProtected:     "LastAdminProtected",
	OutcomeSelfDowngradeForbidden: "SelfDowngradeForbidden",
	OutcomeSelfActionForbidden:    "SelfActionForbidden",
	OutcomeUserNotFound:           "UserNotFound",
	OutcomeInvalidInput:           "InvalidInput",
}

var outcomeMessages = map[Outcome]string{
	OutcomeOK:                     "ok",
	OutcomeAlreadyExists:          "username already exists",
	OutcomeUsernameNotFound:       "username not found",
	OutcomePasswordIncorrect:      "password is incorrect",
	OutcomePasswordExpired:        "password has expired",
	OutcomeOldPasswordIncorrect:   "old password is incorrect",
	OutcomeSameAsOld:              "new password must differ from the old one",
	OutcomeConfirmationMismatch:   "new password and confirmation do not match",
	OutcomeNoChange:               "account already has this role",
	OutcomeLastAdminProtected:     "cannot demote, deactivate or delete the last active administrator",
	OutcomeSelfDowngradeForbidden: "cannot remove your own administrator role",
	OutcomeSelfActionForbidden:    "cannot perform this action on your own account",
	OutcomeUserNotFound:           "user not found",
	OutcomeInvalidInput:           "invalid input",
}

func (o Outcome) String() string {
	if n, ok := outcomeNames[o]; ok {
		return n
	}
	return "Unknown"
}

// Message is the stable human-readable text for the outcome.
func (o Outcome) Message() string {
	if m, ok := outcomeMessages[o]; ok {
		return m
	}
	return "unknown outcome"
}

// Result is what every mutating operation reports back to its caller.
type Result struct {
	Success bool
	Message string
	Outcome Outcome
}

func ok() Result {
	return Result{Success: true, Message: OutcomeOK.Message(), Outcome: OutcomeOK}
}

func fail(o Outcome) Result {
	return Result{Success: false, Message: o.Message(), Outcome: o}
}

func invalidInput(msg string) Result {
	return Result{Success: false, Message: msg, Outcome: OutcomeInvalidInput}
}

// LoginResult extends Result with what the caller needs to request a token.
type LoginResult struct {
	Result
	Username string
	Role     models.Role
	IsActive bool
}
