package depreg

import "fmt"

// Kind discriminates the registry-layer error taxonomy (spec §4.2/§7).
type Kind string

const (
	KindPackageNotFound Kind = "package_not_found"
	KindVersionNotFound Kind = "version_not_found"
	KindInvalidPackage  Kind = "invalid_package"
	KindRateLimited     Kind = "rate_limited"
	KindTransport       Kind = "transport"
	KindArchive         Kind = "archive"
)

// Error is the typed error every registry client returns for a failed
// operation. It always names the package, and the version when known, so
// the orchestrator can record a useful Failed message on the Version row.
type Error struct {
	Kind    Kind
	Package string
	Version string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	where := e.Package
	if e.Version != "" {
		where = fmt.Sprintf("%s@%s", e.Package, e.Version)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, where, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, where, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, where)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &Error{Kind: KindPackageNotFound}) style checks
// against the Kind discriminator only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewPackageNotFound(name string) error {
	return &Error{Kind: KindPackageNotFound, Package: name, Reason: "package not found"}
}

func NewVersionNotFound(name, version string) error {
	return &Error{Kind: KindVersionNotFound, Package: name, Version: version, Reason: "version not found"}
}

func NewInvalidPackage(name, reason string) error {
	return &Error{Kind: KindInvalidPackage, Package: name, Reason: reason}
}

func NewRateLimited(name string) error {
	return &Error{Kind: KindRateLimited, Package: name, Reason: "rate limited"}
}

func NewTransport(name, version string, err error) error {
	return &Error{Kind: KindTransport, Package: name, Version: version, Err: err}
}

func NewArchive(name, version string, err error) error {
	return &Error{Kind: KindArchive, Package: name, Version: version, Err: err}
}
