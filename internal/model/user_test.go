package model

import (
	"encoding/json"
	"testing"
)

func TestAdminFlags_JSON(t *testing.T) {
	data, err := json.Marshal(AdminFlagCoupons | AdminFlagUsers)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["coupons","users"]` {
		t.Errorf("marshal = %s", data)
	}

	data, err = json.Marshal(AdminFlags(0))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[]` {
		t.Errorf("empty flags marshal = %s", data)
	}

	var flags AdminFlags
	if err := json.Unmarshal([]byte(`["payments","coupons"]`), &flags); err != nil {
		t.Fatal(err)
	}
	if flags != AdminFlagPayments|AdminFlagCoupons {
		t.Errorf("unmarshal = %d", flags)
	}
}

func TestAdminFlags_UnmarshalRejects(t *testing.T) {
	for _, input := range []string{`["billing"]`, `7`, `"coupons"`} {
		var flags AdminFlags
		if err := json.Unmarshal([]byte(input), &flags); err == nil {
			t.Errorf("Unmarshal(%s) accepted as %d", input, flags)
		}
	}
}

func TestSession_Can(t *testing.T) {
	admin := NewSession(&User{ID: "u1", Role: RoleAdmin, AdminFlags: AdminFlagCoupons})
	if !admin.Can(AdminFlagCoupons) {
		t.Error("admin with coupons flag should manage coupons")
	}
	if admin.Can(AdminFlagPayments) {
		t.Error("admin without payments flag should not manage payments")
	}

	user := NewSession(&User{ID: "u2", Role: RoleUser, AdminFlags: AdminFlagsAll})
	if user.Can(AdminFlagCoupons) {
		t.Error("non-admin must not pass a flag check")
	}

	var none *Session
	if none.Can(AdminFlagCoupons) {
		t.Error("nil session must not pass a flag check")
	}
}
