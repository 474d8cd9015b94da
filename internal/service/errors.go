package service

import "errors"

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when an authenticated user may not perform an action
	ErrForbidden = errors.New("forbidden")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrCompanyNotFound is returned when a company is not found
	ErrCompanyNotFound = errors.New("company not found")

	// ErrInvalidCredentials is returned when login fails
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a deactivated user tries to log in
	ErrUserInactive = errors.New("user account is deactivated")

	// ErrTakeoffNotFound is returned when a takeoff is not found
	ErrTakeoffNotFound = errors.New("takeoff not found")

	// ErrInvalidTransition is returned when a status change skips a step,
	// goes backwards, or leaves a closed takeoff
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTransitionDenied is returned when the caller's roles do not allow
	// advancing the takeoff out of its current status
	ErrTransitionDenied = errors.New("role not allowed to advance from current status")

	// ErrConfirmationRequired is returned when moving to review without
	// confirming the measurements
	ErrConfirmationRequired = errors.New("measurement confirmation required")

	// ErrPhotoRequired is returned when shipping without a delivery photo
	// and without an explicit skip
	ErrPhotoRequired = errors.New("delivery photo required or must be explicitly skipped")

	// ErrCarpenterRoleRequired is returned when assigning a user without the
	// carpenter role to a takeoff
	ErrCarpenterRoleRequired = errors.New("assigned user must have the carpenter role")

	// ErrCompanySelectionRequired is returned when a multi-company user has
	// not yet selected an active company
	ErrCompanySelectionRequired = errors.New("company selection required")

	// ErrCompanyAccessDenied is returned when a user selects or targets a
	// company they are not a member of
	ErrCompanyAccessDenied = errors.New("not a member of the requested company")

	// ErrInvoiceNotFound is returned when an invoice is not found
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvoiceNotDraft is returned when sending an invoice that already left draft
	ErrInvoiceNotDraft = errors.New("invoice is not in draft status")

	// ErrTakeoffNotBillable is returned when invoicing a takeoff that has not
	// finished its trim work
	ErrTakeoffNotBillable = errors.New("takeoff must complete back trim before invoicing")

	// ErrMaterialRequestNotFound is returned when a material request is not found
	ErrMaterialRequestNotFound = errors.New("material request not found")

	// ErrMaterialRequestDecided is returned when approving or rejecting a
	// request that has already been decided
	ErrMaterialRequestDecided = errors.New("material request already decided")

	// ErrEmailTaken is returned when creating a user with an existing email
	ErrEmailTaken = errors.New("email is already in use")
)
