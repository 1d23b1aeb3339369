// SPDX-License-Identifier: BSD-3-Clause

package activator

import (
	"fmt"
	"sort"
)

// indexEntry is one (interface name, owning service) pair in the flattened,
// sorted index described by C2.
type indexEntry struct {
	name string
	svc  *Service
}

// interfaceIndex is the sorted name->service map. It is always rebuilt from
// scratch (never incrementally patched) because mutations are administrative
// and rare — rebuild cost is the cost §4.2 explicitly accepts.
type interfaceIndex struct {
	entries []indexEntry
}

// buildInterfaceIndex implements C2's build algorithm: flatten every
// service's interfaces into one slice, sort lexicographically, and scan
// adjacent entries for duplicates. A duplicate interface name claimed by two
// services is ErrNotUnique, surfaced to the caller of AddServices or fatal at
// startup per §7.
func buildInterfaceIndex(services []*Service) (*interfaceIndex, error) {
	var entries []indexEntry
	for _, s := range services {
		for _, name := range s.Interfaces {
			entries = append(entries, indexEntry{name: name, svc: s})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].name < entries[j].name
	})

	for i := 1; i < len(entries); i++ {
		if entries[i].name == entries[i-1].name {
			return nil, fmt.Errorf("%s: %w", entries[i].name, ErrNotUnique)
		}
	}

	return &interfaceIndex{entries: entries}, nil
}

// lookup performs the binary search described by C2.
func (ix *interfaceIndex) lookup(name string) (*Service, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].name >= name
	})
	if i < len(ix.entries) && ix.entries[i].name == name {
		return ix.entries[i].svc, true
	}
	return nil, false
}

// names returns every interface name currently in the index, in sorted order,
// for GetInfo's reply.
func (ix *interfaceIndex) names() []string {
	names := make([]string, len(ix.entries))
	for i, e := range ix.entries {
		names[i] = e.name
	}
	return names
}
