package service

import (
	"errors"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/store"
)

// notFound переводит store.ErrNotFound в доменную ошибку.
func notFound(err, domainErr error) error {
	if errors.Is(err, store.ErrNotFound) {
		return domainErr
	}
	return err
}

func userNotFound(err error) error  { return notFound(err, domain.ErrUserNotFound) }
func groupNotFound(err error) error { return notFound(err, domain.ErrGroupNotFound) }
