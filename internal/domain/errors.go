package domain

import (
	"errors"
	"fmt"
)

// Классы ошибок, транспорт маппит по ним коды ответа.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
)

var (
	ErrMissingFields       = fmt.Errorf("%w: target and message content required", ErrValidation)
	ErrSelfMessage         = fmt.Errorf("%w: cannot message yourself", ErrValidation)
	ErrTextTooLong         = fmt.Errorf("%w: message text too long", ErrValidation)
	ErrInvalidAttachment   = fmt.Errorf("%w: invalid attachment", ErrValidation)
	ErrEmptyMessageIDs     = fmt.Errorf("%w: messageIds array required", ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrGroupNameRequired   = fmt.Errorf("%w: group name required", ErrValidation)
	ErrUnknownMembers      = fmt.Errorf("%w: one or more members do not exist", ErrValidation)
	ErrUserIDRequired      = fmt.Errorf("%w: userId required", ErrValidation)
	ErrUsernameRequired    = fmt.Errorf("%w: username required", ErrValidation)
	ErrNotMember           = fmt.Errorf("%w: not a member", ErrValidation)
	ErrTargetNotMember     = fmt.Errorf("%w: user not a member", ErrValidation)
	ErrInvalidBefore       = fmt.Errorf("%w: invalid before timestamp", ErrValidation)
	ErrSearchQueryTooShort = fmt.Errorf("%w: q (min length 2) required", ErrValidation)

	ErrNotGroupMember = fmt.Errorf("%w: not a member of this group", ErrForbidden)
	ErrNotGroupAdmin  = fmt.Errorf("%w: not authorized", ErrForbidden)

	ErrUserNotFound  = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrGroupNotFound = fmt.Errorf("%w: group not found", ErrNotFound)
)
