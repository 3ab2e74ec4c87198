package provision

import (
	"bytes"
	"fmt"
	"strings"
)

// mockStore is a mock implementation of Store for testing.
type mockStore struct {
	// Configurable behavior
	setEntropyFunc     func(data []byte) error
	setRootOfTrustFunc func(data []byte) error
	finalizeFunc       func() error

	// Call tracking
	setEntropyCalls     [][]byte
	setRootOfTrustCalls [][]byte
	finalizeCalls       int
}

// newMockStore creates a mock store where every call succeeds.
func newMockStore() *mockStore {
	return &mockStore{
		setEntropyFunc:     func(data []byte) error { return nil },
		setRootOfTrustFunc: func(data []byte) error { return nil },
		finalizeFunc:       func() error { return nil },
	}
}

func (m *mockStore) SetEntropy(data []byte) error {
	m.setEntropyCalls = append(m.setEntropyCalls, data)
	return m.setEntropyFunc(data)
}

func (m *mockStore) SetRootOfTrust(data []byte) error {
	m.setRootOfTrustCalls = append(m.setRootOfTrustCalls, data)
	return m.setRootOfTrustFunc(data)
}

func (m *mockStore) Finalize() error {
	m.finalizeCalls++
	return m.finalizeFunc()
}

// memVolume is an in-memory Volume with case-insensitive names.
type memVolume struct {
	files     map[string][]byte
	writeFunc func(name string, data []byte) error
}

func newMemVolume() *memVolume {
	return &memVolume{files: make(map[string][]byte)}
}

func (v *memVolume) Exists(name string) (bool, error) {
	_, ok := v.files[strings.ToLower(name)]
	return ok, nil
}

func (v *memVolume) ReadFile(name string) ([]byte, error) {
	data, ok := v.files[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%s: file not found", name)
	}
	return bytes.Clone(data), nil
}

func (v *memVolume) WriteFile(name string, data []byte) error {
	if v.writeFunc != nil {
		if err := v.writeFunc(name, data); err != nil {
			return err
		}
	}
	v.files[strings.ToLower(name)] = bytes.Clone(data)
	return nil
}

func testCredentials() DeveloperCredentials {
	entropy := make([]byte, EntropySize)
	for i := range entropy {
		entropy[i] = byte(i + 1)
	}
	rot := make([]byte, RootOfTrustSize)
	for i := range rot {
		rot[i] = byte(0xa0 + i)
	}
	return DeveloperCredentials{Entropy: entropy, RootOfTrust: rot}
}
