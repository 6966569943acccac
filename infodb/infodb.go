// Package infodb is the external, read-only static offset/size database
// contract spec.md §6 names ("InfoDB... Static offset/size database keyed
// by OS module + type; falls back to symbols when available. Also exposes
// 'well-known SID → user,domain' and 'well-known certificate thumbprint'").
// Like symbol, the real backend is out of scope; this package defines the
// interface C13's module/user map builders call through plus a small
// in-memory Static implementation.
package infodb

// DB answers static layout and well-known-identity lookups.
type DB interface {
	FieldOffset(module, typeName, fieldName string) (uint64, bool)
	TypeSize(module, typeName string) (uint64, bool)
	WellKnownSID(sid string) (user, domain string, ok bool)
	WellKnownCertThumbprint(thumbprint string) (subject string, ok bool)
}

// Static is an in-memory DB, populated directly in lieu of a real
// version-keyed offset database (SPEC_FULL.md §4's "well-known certificate
// thumbprint"/"well-known SID" lookups, per original_source/vmm/
// oscompatibility.c).
type Static struct {
	fields map[string]uint64
	sizes  map[string]uint64
	sids   map[string][2]string
	certs  map[string]string
}

func NewStatic() *Static {
	return &Static{
		fields: make(map[string]uint64),
		sizes:  make(map[string]uint64),
		sids:   make(map[string][2]string),
		certs:  make(map[string]string),
	}
}

func fieldKey(module, typeName, fieldName string) string {
	return module + "!" + typeName + "." + fieldName
}

func typeKey(module, typeName string) string { return module + "!" + typeName }

func (s *Static) SetFieldOffset(module, typeName, fieldName string, off uint64) {
	s.fields[fieldKey(module, typeName, fieldName)] = off
}

func (s *Static) SetTypeSize(module, typeName string, size uint64) {
	s.sizes[typeKey(module, typeName)] = size
}

func (s *Static) SetWellKnownSID(sid, user, domain string) {
	s.sids[sid] = [2]string{user, domain}
}

func (s *Static) SetWellKnownCert(thumbprint, subject string) {
	s.certs[thumbprint] = subject
}

func (s *Static) FieldOffset(module, typeName, fieldName string) (uint64, bool) {
	v, ok := s.fields[fieldKey(module, typeName, fieldName)]
	return v, ok
}

func (s *Static) TypeSize(module, typeName string) (uint64, bool) {
	v, ok := s.sizes[typeKey(module, typeName)]
	return v, ok
}

func (s *Static) WellKnownSID(sid string) (string, string, bool) {
	v, ok := s.sids[sid]
	if !ok {
		return "", "", false
	}
	return v[0], v[1], true
}

func (s *Static) WellKnownCertThumbprint(thumbprint string) (string, bool) {
	v, ok := s.certs[thumbprint]
	return v, ok
}
