package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AdminFlags scopes what an admin may manage in the back office.
type AdminFlags int

const (
	AdminFlagCoupons AdminFlags = 1 << iota
	AdminFlagPayments
	AdminFlagUsers

	AdminFlagsAll = AdminFlagCoupons | AdminFlagPayments | AdminFlagUsers
)

var adminFlagNames = []struct {
	flag AdminFlags
	name string
}{
	{AdminFlagCoupons, "coupons"},
	{AdminFlagPayments, "payments"},
	{AdminFlagUsers, "users"},
}

func (f AdminFlags) Has(flag AdminFlags) bool {
	return f&flag == flag
}

func (f AdminFlags) Names() []string {
	names := []string{}
	for _, n := range adminFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	return names
}

// ParseAdminFlags turns flag names into a bit set. Unknown names are an error.
func ParseAdminFlags(names []string) (AdminFlags, error) {
	var flags AdminFlags
	for _, name := range names {
		found := false
		for _, n := range adminFlagNames {
			if n.name == name {
				flags |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown admin flag %q", name)
		}
	}
	return flags, nil
}

func (f AdminFlags) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Names())
}

func (f *AdminFlags) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("admin flags must be a list of names: %w", err)
	}
	flags, err := ParseAdminFlags(names)
	if err != nil {
		return err
	}
	*f = flags
	return nil
}

type User struct {
	ID         string     `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	Role       string     `db:"role" json:"role"`
	AdminFlags AdminFlags `db:"admin_flags" json:"adminFlags"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
