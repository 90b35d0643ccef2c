package services

import (
	"testing"

	"homeledger/internal/testutil"
)

func TestCreateUser(t *testing.T) {
	t.Run("lowercases_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.CreateUser("Alice@Example.com", "supersecret", "Alice")
		testutil.AssertNoError(t, err)
		if user.Email != "alice@example.com" {
			t.Errorf("expected lowercased email, got %s", user.Email)
		}
		if user.Password == "supersecret" {
			t.Error("password must be stored hashed")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("alice@example.com", "supersecret", "Alice")
		testutil.AssertNoError(t, err)

		_, err = svc.CreateUser("ALICE@example.com", "different", "Also Alice")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.CreateUser("", "supersecret", "Alice")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAttemptLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	created, err := svc.CreateUser("alice@example.com", "supersecret", "Alice")
	testutil.AssertNoError(t, err)

	t.Run("valid_credentials", func(t *testing.T) {
		user, err := svc.AttemptLogin("alice@example.com", "supersecret")
		testutil.AssertNoError(t, err)
		if user.ID != created.ID {
			t.Errorf("expected user %d, got %d", created.ID, user.ID)
		}
		if user.LastLoginAt == nil {
			t.Error("expected last login timestamp set")
		}
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := svc.AttemptLogin("alice@example.com", "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	// Unknown accounts fail the same way as bad passwords.
	t.Run("unknown_email", func(t *testing.T) {
		_, err := svc.AttemptLogin("nobody@example.com", "supersecret")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestRefreshTokenHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)

	user, err := svc.CreateUser("alice@example.com", "supersecret", "Alice")
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, svc.StoreRefreshTokenHash(user.ID, "somehash"))

	hash, err := svc.GetRefreshTokenHash(user.ID)
	testutil.AssertNoError(t, err)
	if hash != "somehash" {
		t.Errorf("expected stored hash, got %q", hash)
	}

	_, err = svc.GetRefreshTokenHash(9999)
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}
