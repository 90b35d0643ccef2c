package services

import (
	"testing"
	"time"

	"homeledger/internal/models"
	"homeledger/internal/testutil"
)

func TestCreateHousehold(t *testing.T) {
	t.Run("creator_becomes_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)
		user := testutil.CreateTestUser(t, db)

		hh, err := svc.CreateHousehold(user.ID, "Home", models.CurrencyCAD)
		testutil.AssertNoError(t, err)

		if hh.SettlementCurrency != models.CurrencyCAD {
			t.Errorf("expected CAD, got %s", hh.SettlementCurrency)
		}

		members, err := svc.GetMembers(hh.ID)
		testutil.AssertNoError(t, err)
		if len(members) != 1 || members[0].Role != models.MemberRoleOwner {
			t.Errorf("expected the creator as sole owner, got %+v", members)
		}
	})

	t.Run("invalid_currency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateHousehold(user.ID, "Home", "EUR")
		testutil.AssertAppError(t, err, "INVALID_CURRENCY")
	})
}

func TestRequireMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewHouseholdService(db)

	member := testutil.CreateTestUser(t, db)
	outsider := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, member)

	testutil.AssertNoError(t, svc.RequireMember(member.ID, hh.ID))
	testutil.AssertAppError(t, svc.RequireMember(outsider.ID, hh.ID), "NOT_HOUSEHOLD_MEMBER")
}

func TestDeleteHousehold(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewHouseholdService(db)

	owner := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)
	hh := testutil.CreateTestHousehold(t, db, owner, member)

	t.Run("member_cannot_delete", func(t *testing.T) {
		testutil.AssertAppError(t, svc.DeleteHousehold(member.ID, hh.ID), "FORBIDDEN")
	})

	t.Run("owner_deletes", func(t *testing.T) {
		testutil.AssertNoError(t, svc.DeleteHousehold(owner.ID, hh.ID))

		households, err := svc.GetUserHouseholds(owner.ID)
		testutil.AssertNoError(t, err)
		if len(households) != 0 {
			t.Errorf("expected no households after delete, got %d", len(households))
		}
	})
}

func TestRemoveMember(t *testing.T) {
	t.Run("member_cannot_remove_others", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)

		owner := testutil.CreateTestUser(t, db)
		a := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, owner, a, b)

		testutil.AssertAppError(t, svc.RemoveMember(a.ID, hh.ID, b.ID), "FORBIDDEN")
	})

	t.Run("member_can_leave", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)

		owner := testutil.CreateTestUser(t, db)
		a := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, owner, a)

		testutil.AssertNoError(t, svc.RemoveMember(a.ID, hh.ID, a.ID))
		testutil.AssertAppError(t, svc.RequireMember(a.ID, hh.ID), "NOT_HOUSEHOLD_MEMBER")
	})

	t.Run("removed_member_can_rejoin", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)

		owner := testutil.CreateTestUser(t, db)
		a := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, owner, a)

		testutil.AssertNoError(t, svc.RemoveMember(owner.ID, hh.ID, a.ID))

		invitation, err := svc.InviteMember(owner.ID, hh.ID, a.Email)
		testutil.AssertNoError(t, err)

		member, err := svc.AcceptInvitation(a.ID, invitation.Token)
		testutil.AssertNoError(t, err)
		if member.HouseholdID != hh.ID || member.UserID != a.ID {
			t.Errorf("unexpected member %+v", member)
		}
		testutil.AssertNoError(t, svc.RequireMember(a.ID, hh.ID))
	})
}

func TestInvitations(t *testing.T) {
	t.Run("invite_and_accept", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)

		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, owner)

		invitation, err := svc.InviteMember(owner.ID, hh.ID, "Friend@Example.com")
		testutil.AssertNoError(t, err)
		if invitation.Email != "friend@example.com" {
			t.Errorf("expected lowercased email, got %s", invitation.Email)
		}
		if invitation.Status != models.InvitationStatusPending {
			t.Errorf("expected pending, got %s", invitation.Status)
		}

		member, err := svc.AcceptInvitation(invitee.ID, invitation.Token)
		testutil.AssertNoError(t, err)
		if member.HouseholdID != hh.ID || member.Role != models.MemberRoleMember {
			t.Errorf("unexpected member %+v", member)
		}

		// The token is single-use.
		_, err = svc.AcceptInvitation(invitee.ID, invitation.Token)
		testutil.AssertAppError(t, err, "INVITATION_USED")
	})

	t.Run("expired", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)

		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, owner)

		invitation, err := svc.InviteMember(owner.ID, hh.ID, "late@example.com")
		testutil.AssertNoError(t, err)

		err = db.Model(&models.Invitation{}).Where("id = ?", invitation.ID).
			Update("expires_at", time.Now().Add(-time.Hour)).Error
		testutil.AssertNoError(t, err)

		_, err = svc.AcceptInvitation(invitee.ID, invitation.Token)
		testutil.AssertAppError(t, err, "INVITATION_EXPIRED")
	})

	t.Run("revoke", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)

		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, owner)

		invitation, err := svc.InviteMember(owner.ID, hh.ID, "gone@example.com")
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.RevokeInvitation(owner.ID, hh.ID, invitation.ID))

		_, err = svc.AcceptInvitation(invitee.ID, invitation.Token)
		testutil.AssertAppError(t, err, "INVITATION_USED")
	})

	t.Run("already_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewHouseholdService(db)

		owner := testutil.CreateTestUser(t, db)
		existing := testutil.CreateTestUser(t, db)
		hh := testutil.CreateTestHousehold(t, db, owner, existing)

		invitation, err := svc.InviteMember(owner.ID, hh.ID, existing.Email)
		testutil.AssertNoError(t, err)

		_, err = svc.AcceptInvitation(existing.ID, invitation.Token)
		testutil.AssertAppError(t, err, "DUPLICATE_MEMBER")
	})
}
