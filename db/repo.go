package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fido2backend/models"
	"fido2backend/webauthn"
)

// Repo implements webauthn.CredentialRepository on top of Postgres.
type Repo struct{ DB *gorm.DB }

func NewRepo(conn *gorm.DB) *Repo { return &Repo{DB: conn} }

func (r *Repo) FindUser(ctx context.Context, username string) (*webauthn.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, webauthn.ErrUserNotFound
	}
	if err != nil {
		return nil, repoErr(err)
	}
	return toDomainUser(&u), nil
}

func (r *Repo) CreateUser(ctx context.Context, username, displayName string) (*webauthn.User, error) {
	u := models.User{ID: uuid.NewString(), Username: username, DisplayName: displayName}
	err := r.DB.WithContext(ctx).Create(&u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, webauthn.ErrDuplicateUser
	}
	if err != nil {
		return nil, repoErr(err)
	}
	return toDomainUser(&u), nil
}

func (r *Repo) ListCredentials(ctx context.Context, userID string) ([]webauthn.Credential, error) {
	var cs []models.Credential
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&cs).Error; err != nil {
		return nil, repoErr(err)
	}
	out := make([]webauthn.Credential, 0, len(cs))
	for i := range cs {
		out = append(out, *toDomainCredential(&cs[i]))
	}
	return out, nil
}

func (r *Repo) FindCredentialByID(ctx context.Context, credentialID []byte) (*webauthn.User, *webauthn.Credential, error) {
	var c models.Credential
	err := r.DB.WithContext(ctx).Where("credential_id = ?", credentialID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, webauthn.ErrCredentialNotFound
	}
	if err != nil {
		return nil, nil, repoErr(err)
	}

	var u models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", c.UserID).First(&u).Error; err != nil {
		return nil, nil, repoErr(err)
	}
	return toDomainUser(&u), toDomainCredential(&c), nil
}

func (r *Repo) InsertCredential(ctx context.Context, userID string, cred *webauthn.Credential) error {
	row := models.Credential{
		UserID:       userID,
		CredentialID: cred.ID,
		PublicKey:    cred.PublicKey,
		SignCount:    cred.SignCount,
		AAGUID:       cred.AAGUID,
		Transports:   models.JoinTransports(cred.Transports),
	}
	err := r.DB.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return webauthn.ErrDuplicateCredential
	}
	if err != nil {
		return repoErr(err)
	}
	return nil
}

func (r *Repo) UpdateCounterAndLastUsed(ctx context.Context, credentialID []byte, newCount uint32, usedAt time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.Credential{}).
		Where("credential_id = ?", credentialID).
		Updates(map[string]any{"sign_count": newCount, "last_used_at": usedAt})
	if res.Error != nil {
		return repoErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return webauthn.ErrCredentialNotFound
	}
	return nil
}

// DeleteUser removes credentials first, then the user, inside one
// transaction: the cascade is an application-level invariant.
func (r *Repo) DeleteUser(ctx context.Context, userID string) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.Credential{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{ID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return webauthn.ErrUserNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, webauthn.ErrUserNotFound) {
		return repoErr(err)
	}
	return err
}

func toDomainUser(u *models.User) *webauthn.User {
	return &webauthn.User{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}

func toDomainCredential(c *models.Credential) *webauthn.Credential {
	return &webauthn.Credential{
		ID:         c.CredentialID,
		UserID:     c.UserID,
		PublicKey:  c.PublicKey,
		SignCount:  c.SignCount,
		AAGUID:     c.AAGUID,
		Transports: c.TransportList(),
		LastUsedAt: c.LastUsedAt,
	}
}

func repoErr(err error) error {
	return fmt.Errorf("%w: %v", webauthn.ErrRepoUnavailable, err)
}
