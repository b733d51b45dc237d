// Package storage persists uploaded logos and derives their file names.
package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"account-api/internal/models"
)

// ErrLogoExists is returned instead of overwriting a logo already stored under the same key.
// Two uploads of one purpose and extension within the same second derive the same file name.
var ErrLogoExists = errors.New("logo already exists")

// Logo namespaces, relative to the storage root.
const (
	UserLogoNamespace    = "logos/users"
	CompanyLogoNamespace = "logos/companies"
)

// NamespaceFor returns the directory a logo of the given purpose is stored under.
func NamespaceFor(purpose models.LogoPurpose) string {
	if purpose == models.LogoPurposeCompany {
		return CompanyLogoNamespace
	}
	return UserLogoNamespace
}

// LogoFileName builds "{unix}_{purpose}_logo.{ext}".
func LogoFileName(now time.Time, purpose models.LogoPurpose, ext string) string {
	return fmt.Sprintf("%d_%s_logo.%s", now.Unix(), purpose, strings.ToLower(strings.TrimPrefix(ext, ".")))
}

// objectKey joins namespace and filename, refusing anything that would escape the namespace.
func objectKey(namespace, filename string) (string, error) {
	if filename == "" || filename != path.Base(filename) || filename == "." || filename == ".." || strings.Contains(filename, "\\") {
		return "", fmt.Errorf("invalid logo file name %q", filename)
	}
	clean := path.Clean(namespace)
	if namespace == "" || clean == "." || strings.HasPrefix(clean, "..") || path.IsAbs(clean) {
		return "", fmt.Errorf("invalid logo namespace %q", namespace)
	}
	return path.Join(clean, filename), nil
}

// splitKey validates a key previously returned by Store.
func splitKey(key string) (string, error) {
	dir, file := path.Split(key)
	return objectKey(strings.TrimSuffix(dir, "/"), file)
}
