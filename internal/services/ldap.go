package services

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/pkg/logger"
)

var (
	errLDAPDisabled       = errors.New("LDAP is not enabled")
	errLDAPUserNotFound   = errors.New("user not found in directory")
	errLDAPAmbiguousUser  = errors.New("multiple directory entries match this user")
	errLDAPBadCredentials = errors.New("invalid credentials")
)

// LDAPUser is the directory profile copied onto the local account at login.
type LDAPUser struct {
	DN       string
	Username string
	Email    string
	Nickname string
	Avatar   string
}

type LDAPService struct {
	config *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) *LDAPService {
	return &LDAPService{config: cfg}
}

func (s *LDAPService) IsEnabled() bool {
	return s.config != nil && s.config.Enabled
}

// attributes lists the entry attributes requested in the user search.
func (s *LDAPService) attributes() []string {
	attrs := []string{"dn", "uid", "sAMAccountName", s.emailAttr(), s.nameAttr()}
	if s.config.AvatarAttr != "" {
		attrs = append(attrs, s.config.AvatarAttr)
	}
	return attrs
}

func (s *LDAPService) emailAttr() string {
	if s.config.EmailAttr != "" {
		return s.config.EmailAttr
	}
	return "mail"
}

func (s *LDAPService) nameAttr() string {
	if s.config.NameAttr != "" {
		return s.config.NameAttr
	}
	return "cn"
}

// userFromEntry maps a directory entry onto an LDAPUser. Active Directory
// entries carry sAMAccountName instead of uid.
func (s *LDAPService) userFromEntry(entry *ldap.Entry) *LDAPUser {
	user := &LDAPUser{
		DN:       entry.DN,
		Username: entry.GetAttributeValue("uid"),
		Email:    entry.GetAttributeValue(s.emailAttr()),
		Nickname: entry.GetAttributeValue(s.nameAttr()),
	}
	if user.Username == "" {
		user.Username = entry.GetAttributeValue("sAMAccountName")
	}
	if s.config.AvatarAttr != "" {
		user.Avatar = entry.GetAttributeValue(s.config.AvatarAttr)
	}
	if user.Nickname == "" {
		user.Nickname = user.Username
	}
	return user
}

func (s *LDAPService) dial() (*ldap.Conn, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if s.config.UseSSL {
		return ldap.DialTLS("tcp", addr, &tls.Config{
			ServerName:         s.config.Host,
			InsecureSkipVerify: s.config.SkipVerify,
		})
	}
	return ldap.Dial("tcp", addr)
}

// Authenticate finds the user with the service account, then binds as the
// user to check the password.
func (s *LDAPService) Authenticate(username, password string) (*LDAPUser, error) {
	if !s.IsEnabled() {
		return nil, errLDAPDisabled
	}
	if password == "" {
		return nil, errLDAPBadCredentials
	}

	conn, err := s.dial()
	if err != nil {
		logger.Module("ldap").Error().Err(err).Str("host", s.config.Host).Msg("directory unreachable")
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer conn.Close()

	if s.config.BindDN != "" {
		if err := conn.Bind(s.config.BindDN, s.config.BindPassword); err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	result, err := conn.Search(ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		fmt.Sprintf(s.config.UserFilter, ldap.EscapeFilter(username)),
		s.attributes(),
		nil,
	))
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}
	switch {
	case result == nil || len(result.Entries) == 0:
		return nil, errLDAPUserNotFound
	case len(result.Entries) > 1:
		return nil, errLDAPAmbiguousUser
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, errLDAPBadCredentials
	}
	return s.userFromEntry(entry), nil
}
