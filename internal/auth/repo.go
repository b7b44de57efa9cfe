package auth

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
)

// Repository defines lookup operations for the principal store.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
}

// Roster is a read-only in-memory principal store keyed by exact email.
type Roster struct {
	byEmail map[string]Account
}

// NewRoster builds a roster. Emails must be unique; comparison is exact.
func NewRoster(accounts []Account) (*Roster, error) {
	byEmail := make(map[string]Account, len(accounts))
	for _, acc := range accounts {
		if _, exists := byEmail[acc.Email]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, acc.Email)
		}
		byEmail[acc.Email] = acc
	}
	return &Roster{byEmail: byEmail}, nil
}

// FindByEmail fetches an account by its exact email.
func (r *Roster) FindByEmail(ctx context.Context, email string) (Account, error) {
	if r == nil {
		return Account{}, ErrNotFound
	}
	acc, ok := r.byEmail[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

// Principals lists every account without secrets, ordered by ID.
func (r *Roster) Principals() []Principal {
	if r == nil {
		return nil
	}
	out := make([]Principal, 0, len(r.byEmail))
	for _, acc := range r.byEmail {
		out = append(out, acc.Principal())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnknownRoles returns the emails of accounts whose role is not configured.
// Such accounts can still log in but hold no capabilities.
func (r *Roster) UnknownRoles() []string {
	if r == nil {
		return nil
	}
	var emails []string
	for email, acc := range r.byEmail {
		if !acc.Role.Known() {
			emails = append(emails, email)
		}
	}
	sort.Strings(emails)
	return emails
}

// DemoAccounts returns the built-in demo roster.
func DemoAccounts() []Account {
	return []Account{
		{
			ID:          1,
			Email:       "admin@company.com",
			Secret:      "admin123",
			Role:        rbac.RoleAdmin,
			DisplayName: "Admin User",
			AvatarRef:   "https://api.dicebear.com/7.x/avataaars/svg?seed=admin",
		},
		{
			ID:          2,
			Email:       "editor@company.com",
			Secret:      "editor123",
			Role:        rbac.RoleEditor,
			DisplayName: "Editor User",
			AvatarRef:   "https://api.dicebear.com/7.x/avataaars/svg?seed=editor",
		},
		{
			ID:          3,
			Email:       "viewer@company.com",
			Secret:      "viewer123",
			Role:        rbac.RoleViewer,
			DisplayName: "Viewer User",
			AvatarRef:   "https://api.dicebear.com/7.x/avataaars/svg?seed=viewer",
		},
	}
}

type rosterFile struct {
	Accounts []rosterEntry `yaml:"accounts"`
}

type rosterEntry struct {
	ID         int64  `yaml:"id"`
	Email      string `yaml:"email"`
	Secret     string `yaml:"secret"`
	SecretHash string `yaml:"secret_hash"`
	Role       string `yaml:"role"`
	Name       string `yaml:"name"`
	Avatar     string `yaml:"avatar"`
}

// ParseRoster decodes a YAML roster document.
func ParseRoster(data []byte) (*Roster, error) {
	var doc rosterFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("auth: decode roster: %w", err)
	}
	accounts := make([]Account, 0, len(doc.Accounts))
	for i, entry := range doc.Accounts {
		if entry.Email == "" {
			return nil, fmt.Errorf("auth: roster entry %d: email required", i)
		}
		if entry.Secret == "" && entry.SecretHash == "" {
			return nil, fmt.Errorf("auth: roster entry %s: secret or secret_hash required", entry.Email)
		}
		accounts = append(accounts, Account{
			ID:          entry.ID,
			Email:       entry.Email,
			Secret:      entry.Secret,
			SecretHash:  entry.SecretHash,
			Role:        rbac.Role(entry.Role),
			DisplayName: entry.Name,
			AvatarRef:   entry.Avatar,
		})
	}
	return NewRoster(accounts)
}

// LoadRoster reads a YAML roster from path, or returns the demo roster when
// path is empty.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return NewRoster(DemoAccounts())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("auth: read roster: %w", err)
	}
	return ParseRoster(data)
}

var _ Repository = (*Roster)(nil)
