package service

import (
	"context"
	"errors"
	"testing"

	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
)

func setupUserService(t *testing.T) (*UserService, repository.UserRepository) {
	t.Helper()

	repo := repository.NewUserRepository(newTestDB(t))
	email := NewEmailService("", "noreply@example.com", "http://localhost:8090", "Pawcare", true)
	return NewUserService(repo, email), repo
}

func TestUserService_Create(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, "  Vet@Example.com ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.Email != "vet@example.com" || user.Role != model.RoleUser {
		t.Errorf("user = %+v", user)
	}

	_, err = svc.Create(ctx, "vet@example.com")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate: err = %v, want ErrConflict", err)
	}

	_, err = svc.Create(ctx, "not an email")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("invalid: err = %v, want ErrInvalidArgument", err)
	}
}

func TestUserService_AdminLifecycle(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	owner, err := svc.Create(ctx, "owner@example.com")
	if err != nil {
		t.Fatal(err)
	}
	staff, err := svc.Create(ctx, "staff@example.com")
	if err != nil {
		t.Fatal(err)
	}

	owner, err = svc.MakeAdmin(ctx, owner.ID, 0)
	if err != nil {
		t.Fatalf("MakeAdmin: %v", err)
	}
	if !owner.IsAdmin() || owner.AdminFlags != model.AdminFlagsAll {
		t.Errorf("owner = %+v, want admin with every flag", owner)
	}
	actor := model.NewSession(owner)

	staff, err = svc.MakeAdmin(ctx, staff.ID, model.AdminFlagCoupons)
	if err != nil {
		t.Fatalf("MakeAdmin: %v", err)
	}
	if staff.AdminFlags != model.AdminFlagCoupons {
		t.Errorf("staff flags = %v", staff.AdminFlags.Names())
	}

	staff, err = svc.SetFlags(ctx, actor, staff.ID, model.AdminFlagCoupons|model.AdminFlagPayments)
	if err != nil {
		t.Fatalf("SetFlags: %v", err)
	}
	if !staff.AdminFlags.Has(model.AdminFlagPayments) {
		t.Errorf("staff flags = %v", staff.AdminFlags.Names())
	}

	admins, err := svc.List(ctx, model.RoleAdmin)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(admins) != 2 {
		t.Errorf("admins = %d, want 2", len(admins))
	}

	staff, err = svc.RevokeAdmin(ctx, actor, staff.ID)
	if err != nil {
		t.Fatalf("RevokeAdmin: %v", err)
	}
	if staff.IsAdmin() || staff.AdminFlags != 0 {
		t.Errorf("staff after revoke = %+v", staff)
	}

	_, err = svc.SetFlags(ctx, actor, staff.ID, model.AdminFlagCoupons)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("flags on non-admin: err = %v, want ErrConflict", err)
	}
}

func TestUserService_SelfProtection(t *testing.T) {
	svc, _ := setupUserService(t)
	ctx := context.Background()

	owner, err := svc.Create(ctx, "owner@example.com")
	if err != nil {
		t.Fatal(err)
	}
	owner, err = svc.MakeAdmin(ctx, owner.ID, model.AdminFlagsAll)
	if err != nil {
		t.Fatal(err)
	}
	actor := model.NewSession(owner)

	_, err = svc.RevokeAdmin(ctx, actor, owner.ID)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("self revoke: err = %v, want ErrConflict", err)
	}

	_, err = svc.SetFlags(ctx, actor, owner.ID, model.AdminFlagCoupons)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("dropping own users flag: err = %v, want ErrConflict", err)
	}

	_, err = svc.SetFlags(ctx, actor, owner.ID, model.AdminFlags(64))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown flag bit: err = %v, want ErrInvalidArgument", err)
	}
}

func TestUserService_NotFound(t *testing.T) {
	svc, _ := setupUserService(t)

	_, err := svc.MakeAdmin(context.Background(), "missing", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	_, err = svc.List(context.Background(), "owner")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown role: err = %v, want ErrInvalidArgument", err)
	}
}
