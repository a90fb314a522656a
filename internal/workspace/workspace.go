// Package workspace defines the persisted data model: the single root
// Workspace document with its sessions and profiles, and the Store
// collaborator that reads and writes it as a whole.
package workspace

import (
	"time"

	"github.com/google/uuid"
)

// Defaults applied when a workspace is created lazily.
const (
	DefaultRegion   = "eu-west-1"
	DefaultLocation = "eastus"

	// DefaultProfileName is the implicit profile every synced session
	// belongs to unless reassigned.
	DefaultProfileName = "default"
)

// AccountType tags the Account union. The variant set is closed.
type AccountType string

const (
	AccountTypeAWS          AccountType = "AWS"
	AccountTypeAWSPlainUser AccountType = "AWS_PLAIN_USER"
	AccountTypeAWSTruster   AccountType = "AWS_TRUSTER"
	AccountTypeAWSSSO       AccountType = "AWS_SSO"
	AccountTypeAzure        AccountType = "AZURE"
)

// Role is the IAM role attached to an AWS account.
type Role struct {
	Name string `yaml:"name" json:"name"`
}

// Account is the credential-bearing identity attached to a session, a tagged
// union over the AccountType variants. AWS variants use AccountNumber, Role
// and optionally Parent; Azure variants use SubscriptionID/TenantID.
type Account struct {
	Type          AccountType `yaml:"type" json:"type"`
	AccountName   string      `yaml:"accountName" json:"accountName"`
	Region        string      `yaml:"region,omitempty" json:"region,omitempty"`
	AccountNumber string      `yaml:"accountNumber,omitempty" json:"accountNumber,omitempty"`
	Role          Role        `yaml:"role,omitempty" json:"role"`

	// Parent is the id of the session supplying base credentials for a
	// truster account. Chains are limited to one level: a parent must not
	// itself have a parent.
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`

	Email string `yaml:"email,omitempty" json:"email,omitempty"`

	SubscriptionID string `yaml:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	TenantID       string `yaml:"tenantId,omitempty" json:"tenantId,omitempty"`
}

// IsAzure reports whether the account is Azure-typed. Azure sessions are
// mutually exclusive globally, AWS sessions per profile.
func (a Account) IsAzure() bool {
	return a.Type == AccountTypeAzure
}

// IsTruster reports whether the account derives credentials from a parent
// session, either by explicit type or by a set Parent reference.
func (a Account) IsTruster() bool {
	return a.Type == AccountTypeAWSTruster || a.Parent != ""
}

// Session is one instantiable unit of access to a cloud account/role.
type Session struct {
	ID           string    `yaml:"id" json:"id"`
	Profile      string    `yaml:"profile" json:"profile"`
	Active       bool      `yaml:"active" json:"active"`
	Loading      bool      `yaml:"loading" json:"loading"`
	LastStopDate time.Time `yaml:"lastStopDate" json:"lastStopDate"`
	Account      Account   `yaml:"account" json:"account"`
}

// Profile is a named grouping of sessions, unique by name.
type Profile struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// ProxyConfiguration holds the proxy settings persisted with the workspace.
type ProxyConfiguration struct {
	Protocol string `yaml:"proxyProtocol" json:"proxyProtocol"`
	URL      string `yaml:"proxyUrl" json:"proxyUrl"`
	Port     string `yaml:"proxyPort" json:"proxyPort"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Workspace is the root persisted document. Exactly one default workspace
// exists at a time; the core always reads a full copy, mutates it and writes
// it back.
type Workspace struct {
	Name            string             `yaml:"name" json:"name"`
	DefaultRegion   string             `yaml:"defaultRegion" json:"defaultRegion"`
	DefaultLocation string             `yaml:"defaultLocation" json:"defaultLocation"`
	Proxy           ProxyConfiguration `yaml:"proxyConfiguration" json:"proxyConfiguration"`
	Profiles        []Profile          `yaml:"profiles" json:"profiles"`
	Sessions        []Session          `yaml:"sessions" json:"sessions"`

	// Opaque Azure sub-profile blobs, owned by the Azure tooling.
	AzureProfile string `yaml:"azureProfile,omitempty" json:"azureProfile,omitempty"`
	AzureConfig  string `yaml:"azureConfig,omitempty" json:"azureConfig,omitempty"`
}

// New creates a default workspace document.
func New() *Workspace {
	return &Workspace{
		Name:            "default",
		DefaultRegion:   DefaultRegion,
		DefaultLocation: DefaultLocation,
		Proxy: ProxyConfiguration{
			Protocol: "https",
			Port:     "8080",
		},
		Profiles: []Profile{},
		Sessions: []Session{},
	}
}

// FindSession returns a pointer into the workspace's session slice for the
// given id, or nil if absent.
func (w *Workspace) FindSession(id string) *Session {
	for i := range w.Sessions {
		if w.Sessions[i].ID == id {
			return &w.Sessions[i]
		}
	}
	return nil
}

// ProfileByName returns the profile with the given name, or nil.
func (w *Workspace) ProfileByName(name string) *Profile {
	for i := range w.Profiles {
		if w.Profiles[i].Name == name {
			return &w.Profiles[i]
		}
	}
	return nil
}

// ProfileByID returns the profile with the given id, or nil.
func (w *Workspace) ProfileByID(id string) *Profile {
	for i := range w.Profiles {
		if w.Profiles[i].ID == id {
			return &w.Profiles[i]
		}
	}
	return nil
}

// EnsureProfile returns the id of the named profile, creating it if absent.
// The second return reports whether a profile was created.
func (w *Workspace) EnsureProfile(name string) (string, bool) {
	if p := w.ProfileByName(name); p != nil {
		return p.ID, false
	}
	p := Profile{ID: uuid.NewString(), Name: name}
	w.Profiles = append(w.Profiles, p)
	return p.ID, true
}

// Clone deep-copies the workspace so a snapshot survives later mutation.
func (w *Workspace) Clone() *Workspace {
	if w == nil {
		return nil
	}
	out := *w
	out.Profiles = append([]Profile(nil), w.Profiles...)
	out.Sessions = append([]Session(nil), w.Sessions...)
	return &out
}
