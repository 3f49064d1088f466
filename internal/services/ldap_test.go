package services

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/huangang/ideaforge/backend/internal/config"
)

func TestLDAPUserFromEntry_DefaultAttributes(t *testing.T) {
	svc := NewLDAPService(&config.LDAPConfig{Enabled: true})
	entry := ldap.NewEntry("uid=olivia,ou=people,dc=example,dc=com", map[string][]string{
		"uid":  {"olivia"},
		"mail": {"Olivia@Example.com"},
		"cn":   {"Olivia P"},
	})

	user := svc.userFromEntry(entry)
	if user.Username != "olivia" || user.Email != "Olivia@Example.com" || user.Nickname != "Olivia P" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.Avatar != "" {
		t.Errorf("Avatar = %q, expected empty without avatar_attr", user.Avatar)
	}
}

func TestLDAPUserFromEntry_ActiveDirectoryMapping(t *testing.T) {
	svc := NewLDAPService(&config.LDAPConfig{
		Enabled:    true,
		EmailAttr:  "userPrincipalName",
		NameAttr:   "displayName",
		AvatarAttr: "thumbnailURL",
	})
	entry := ldap.NewEntry("CN=Dev,OU=Users,DC=corp", map[string][]string{
		"sAMAccountName":    {"dev"},
		"userPrincipalName": {"dev@corp.example"},
		"thumbnailURL":      {"https://cdn.example/dev.png"},
	})

	user := svc.userFromEntry(entry)
	if user.Username != "dev" {
		t.Errorf("Username = %q, expected sAMAccountName fallback", user.Username)
	}
	if user.Email != "dev@corp.example" {
		t.Errorf("Email = %q", user.Email)
	}
	if user.Nickname != "dev" {
		t.Errorf("Nickname = %q, expected username when display name is missing", user.Nickname)
	}
	if user.Avatar != "https://cdn.example/dev.png" {
		t.Errorf("Avatar = %q", user.Avatar)
	}

	attrs := svc.attributes()
	want := map[string]bool{"userPrincipalName": false, "displayName": false, "thumbnailURL": false}
	for _, a := range attrs {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for a, found := range want {
		if !found {
			t.Errorf("search attributes %v missing %s", attrs, a)
		}
	}
}

func TestLDAPAuthenticate_RejectsBeforeDialing(t *testing.T) {
	if _, err := NewLDAPService(&config.LDAPConfig{}).Authenticate("dev", "pw"); !errors.Is(err, errLDAPDisabled) {
		t.Errorf("disabled: err = %v", err)
	}
	if _, err := NewLDAPService(nil).Authenticate("dev", "pw"); !errors.Is(err, errLDAPDisabled) {
		t.Errorf("nil config: err = %v", err)
	}

	enabled := NewLDAPService(&config.LDAPConfig{Enabled: true, Host: "127.0.0.1", Port: 1})
	if _, err := enabled.Authenticate("dev", ""); !errors.Is(err, errLDAPBadCredentials) {
		t.Errorf("empty password: err = %v", err)
	}
}
