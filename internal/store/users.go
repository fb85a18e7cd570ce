package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// User is a registered account. Records are immutable after creation and
// are never deleted in normal operation. PasswordHash is the bcrypt digest
// of the password and is omitted from JSON responses.
type User struct {
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	RegistrationDate time.Time `json:"registration_date"`
}

// stored mirrors User but keeps the hash, for persistence only.
type storedUser struct {
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"password_hash"`
	RegistrationDate time.Time `json:"registration_date"`
}

func toStored(u User) storedUser {
	return storedUser{u.UserID, u.Username, u.Email, u.PasswordHash, u.RegistrationDate}
}

func fromStored(su storedUser) User {
	return User{su.UserID, su.Username, su.Email, su.PasswordHash, su.RegistrationDate}
}

// CreateUser persists a new user. Username and email uniqueness is checked
// and the index buckets are written inside the same transaction, so a
// failure leaves no partial record.
func (s *Store) CreateUser(u User) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		byName := tx.Bucket([]byte(usersByNameBucket))
		byMail := tx.Bucket([]byte(usersByMailBucket))

		if byName.Get([]byte(u.Username)) != nil {
			return ErrDuplicateUsername
		}
		if byMail.Get([]byte(u.Email)) != nil {
			return ErrDuplicateEmail
		}

		data, err := json.Marshal(toStored(u))
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}

		if err := tx.Bucket([]byte(usersBucket)).Put([]byte(u.UserID), data); err != nil {
			return err
		}
		if err := byName.Put([]byte(u.Username), []byte(u.UserID)); err != nil {
			return err
		}
		return byMail.Put([]byte(u.Email), []byte(u.UserID))
	})
	if err == ErrDuplicateUsername || err == ErrDuplicateEmail {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: create user: %v", ErrStorageIO, err)
	}
	return nil
}

// UserByName looks a user up by username. The second return value reports
// whether a matching record exists.
func (s *Store) UserByName(username string) (User, bool, error) {
	return s.lookupUser(usersByNameBucket, username)
}

// UserByID looks a user up by its generated identifier.
func (s *Store) UserByID(userID string) (User, bool, error) {
	var u User
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(usersBucket)).Get([]byte(userID))
		if data == nil {
			return nil
		}
		var su storedUser
		if err := json.Unmarshal(data, &su); err != nil {
			return fmt.Errorf("unmarshal user %s: %w", userID, err)
		}
		u = fromStored(su)
		found = true
		return nil
	})
	if err != nil {
		return User{}, false, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return u, found, nil
}

func (s *Store) lookupUser(indexBucket, key string) (User, bool, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(indexBucket)).Get([]byte(key))
		if v != nil {
			id = string(v)
		}
		return nil
	})
	if err != nil {
		return User{}, false, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	if id == "" {
		return User{}, false, nil
	}
	return s.UserByID(id)
}

// Users returns every registered user, in key (user_id) order.
func (s *Store) Users() ([]User, error) {
	var users []User
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(usersBucket)).ForEach(func(_, v []byte) error {
			var su storedUser
			if err := json.Unmarshal(v, &su); err != nil {
				return nil // skip malformed records
			}
			users = append(users, fromStored(su))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return users, nil
}
