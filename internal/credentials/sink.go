package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// AWSCredentials is one set of temporary AWS credentials ready to be handed
// to a consumer profile.
type AWSCredentials struct {
	AccessKeyID     string    `json:"accessKeyId"`
	SecretAccessKey string    `json:"secretAccessKey"`
	SessionToken    string    `json:"sessionToken"`
	Region          string    `json:"region,omitempty"`
	Expiration      time.Time `json:"expiration"`
}

// Expired reports whether the credentials have passed their expiration at the
// given instant. Credentials without an expiration never expire.
func (c AWSCredentials) Expired(now time.Time) bool {
	return !c.Expiration.IsZero() && !c.Expiration.After(now)
}

// Sink receives refreshed credentials, one named profile at a time.
type Sink interface {
	WriteCredentials(profileName string, creds AWSCredentials) error
	RemoveProfile(profileName string) error
}

// FileSink writes profiles to an AWS shared credentials file. Profiles not
// managed by this process are preserved as-is.
type FileSink struct {
	Path string
}

// NewFileSink returns a FileSink writing to the given path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// DefaultCredentialsPath returns the conventional shared credentials file
// location under the user's home directory.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".aws", "credentials"), nil
}

// WriteCredentials replaces the named profile section, creating the file if
// needed.
func (s *FileSink) WriteCredentials(profileName string, creds AWSCredentials) error {
	sections, order, err := s.load()
	if err != nil {
		return err
	}

	lines := []string{
		"aws_access_key_id = " + creds.AccessKeyID,
		"aws_secret_access_key = " + creds.SecretAccessKey,
	}
	if creds.SessionToken != "" {
		lines = append(lines, "aws_session_token = "+creds.SessionToken)
	}
	if creds.Region != "" {
		lines = append(lines, "region = "+creds.Region)
	}

	if _, ok := sections[profileName]; !ok {
		order = append(order, profileName)
	}
	sections[profileName] = lines

	return s.save(sections, order)
}

// RemoveProfile deletes the named profile section. Removing a profile that is
// not present is not an error.
func (s *FileSink) RemoveProfile(profileName string) error {
	sections, order, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := sections[profileName]; !ok {
		return nil
	}
	delete(sections, profileName)
	for i, name := range order {
		if name == profileName {
			order = append(order[:i], order[i+1:]...)
			break
		}
	}
	return s.save(sections, order)
}

func (s *FileSink) load() (map[string][]string, []string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil, nil
		}
		return nil, nil, fmt.Errorf("reading credentials file: %w", err)
	}

	sections := map[string][]string{}
	var order []string
	current := ""
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			current = strings.TrimSpace(line[1 : len(line)-1])
			if _, ok := sections[current]; !ok {
				sections[current] = nil
				order = append(order, current)
			}
			continue
		}
		if current == "" || line == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}
	return sections, order, nil
}

func (s *FileSink) save(sections map[string][]string, order []string) error {
	// Sections recorded in order; anything else, sorted, goes after. Keeps
	// rewrites deterministic even if load and save drift apart.
	seen := map[string]bool{}
	var names []string
	for _, name := range order {
		if _, ok := sections[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range sections {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s]\n", name)
		for _, line := range sections[name] {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing credentials file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting credentials file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing credentials file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing credentials file: %w", err)
	}
	return nil
}
