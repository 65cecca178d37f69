package vector

import "testing"

func TestProviderConfig_SetDefaults(t *testing.T) {
	cfg := &ProviderConfig{}
	cfg.SetDefaults()
	if cfg.Type != ProviderChromem {
		t.Errorf("Type = %q, want %q", cfg.Type, ProviderChromem)
	}
	if cfg.Chromem == nil {
		t.Error("expected a default Chromem config to be filled in")
	}
}

func TestProviderConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		wantErr bool
	}{
		{"chromem needs nothing", ProviderConfig{Type: ProviderChromem}, false},
		{"qdrant requires config", ProviderConfig{Type: ProviderQdrant}, true},
		{"qdrant requires host", ProviderConfig{Type: ProviderQdrant, Qdrant: &QdrantConfig{}}, true},
		{"qdrant with host is valid", ProviderConfig{Type: ProviderQdrant, Qdrant: &QdrantConfig{Host: "localhost"}}, false},
		{"pinecone requires config", ProviderConfig{Type: ProviderPinecone}, true},
		{"pinecone requires api key", ProviderConfig{Type: ProviderPinecone, Pinecone: &PineconeConfig{}}, true},
		{"empty type is invalid", ProviderConfig{}, true},
		{"unknown type is invalid", ProviderConfig{Type: "made-up"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewProvider_NilConfigReturnsNilProvider(t *testing.T) {
	p, err := NewProvider(nil)
	if err != nil {
		t.Fatalf("NewProvider(nil) error = %v", err)
	}
	if p.Name() != "nil" {
		t.Errorf("NewProvider(nil).Name() = %q, want %q", p.Name(), "nil")
	}
}

func TestNewProvider_ChromemDispatch(t *testing.T) {
	p, err := NewProvider(&ProviderConfig{Type: ProviderChromem})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	defer p.Close()
	if p.Name() != "chromem" {
		t.Errorf("Name() = %q, want %q", p.Name(), "chromem")
	}
}

func TestNewProvider_UnknownTypeIsAnError(t *testing.T) {
	if _, err := NewProvider(&ProviderConfig{Type: "made-up"}); err == nil {
		t.Error("expected an error for an unknown provider type")
	}
}

func TestRegistry_RegisterGetAndReject(t *testing.T) {
	r := NewRegistry()
	p := NilProvider{}

	if err := r.Register("", p); err == nil {
		t.Error("expected an error for an empty provider name")
	}
	if err := r.Register("primary", p); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("primary", p); err == nil {
		t.Error("expected an error re-registering the same name")
	}

	got, ok := r.Get("primary")
	if !ok || got.Name() != "nil" {
		t.Errorf("Get(%q) = %+v, %v", "primary", got, ok)
	}
	if names := r.List(); len(names) != 1 || names[0] != "primary" {
		t.Errorf("List() = %+v, want [primary]", names)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if names := r.List(); len(names) != 0 {
		t.Errorf("expected an empty registry after Close(), got %+v", names)
	}
}

func TestRegistry_MustGetPanicsWhenMissing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustGet to panic for a missing provider")
		}
	}()
	NewRegistry().MustGet("missing")
}
