package ftp

import "testing"

func TestWithExplicitImplicitTLS_MutuallyExclusive(t *testing.T) {
	t.Parallel()

	var cfg Config
	if err := WithExplicitTLS()(&cfg); err != nil {
		t.Fatalf("WithExplicitTLS() on empty config: %v", err)
	}
	if err := WithImplicitTLS()(&cfg); err == nil {
		t.Error("expected error combining implicit TLS onto explicit, got nil")
	}

	cfg = Config{}
	if err := WithImplicitTLS()(&cfg); err != nil {
		t.Fatalf("WithImplicitTLS() on empty config: %v", err)
	}
	if err := WithExplicitTLS()(&cfg); err == nil {
		t.Error("expected error combining explicit TLS onto implicit, got nil")
	}
}

func TestWithExplicitTLS_RepeatedIsFine(t *testing.T) {
	t.Parallel()
	var cfg Config
	if err := WithExplicitTLS()(&cfg); err != nil {
		t.Fatalf("first WithExplicitTLS(): %v", err)
	}
	if err := WithExplicitTLS()(&cfg); err != nil {
		t.Errorf("second WithExplicitTLS() should not conflict with itself: %v", err)
	}
	if cfg.Encryption != EncryptionExplicit {
		t.Errorf("Encryption = %v, want EncryptionExplicit", cfg.Encryption)
	}
}

func TestWithImplicitTLS_RepeatedIsFine(t *testing.T) {
	t.Parallel()
	var cfg Config
	if err := WithImplicitTLS()(&cfg); err != nil {
		t.Fatalf("first WithImplicitTLS(): %v", err)
	}
	if err := WithImplicitTLS()(&cfg); err != nil {
		t.Errorf("second WithImplicitTLS() should not conflict with itself: %v", err)
	}
	if cfg.Encryption != EncryptionImplicit {
		t.Errorf("Encryption = %v, want EncryptionImplicit", cfg.Encryption)
	}
}

func TestWithIdleTimeout(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		seconds int
	}{
		{"5 minutes", 5 * 60},
		{"30 seconds", 30},
		{"disabled", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			if err := WithIdleTimeout(tt.seconds)(&cfg); err != nil {
				t.Fatalf("WithIdleTimeout failed: %v", err)
			}
			if cfg.IdleTimeoutSeconds != tt.seconds {
				t.Errorf("IdleTimeoutSeconds = %d, want %d", cfg.IdleTimeoutSeconds, tt.seconds)
			}
		})
	}
}

func TestApplyDefaults_Port(t *testing.T) {
	t.Parallel()

	cfg := Config{Host: "ftp.example.com"}
	cfg.applyDefaults()
	if cfg.Port != 21 {
		t.Errorf("plaintext default port = %d, want 21", cfg.Port)
	}

	cfg = Config{Host: "ftp.example.com", Encryption: EncryptionImplicit}
	cfg.applyDefaults()
	if cfg.Port != 990 {
		t.Errorf("implicit TLS default port = %d, want 990", cfg.Port)
	}
}

func TestWithCustomListParser_Ordering(t *testing.T) {
	t.Parallel()
	p1 := &CustomParser{}
	p2 := &CustomParser{}

	var cfg Config
	if err := WithCustomListParser(p1)(&cfg); err != nil {
		t.Fatal(err)
	}
	if err := WithCustomListParser(p2)(&cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.parsers) != 2 || cfg.parsers[0] != p2 || cfg.parsers[1] != p1 {
		t.Errorf("expected most recently registered parser first, got %v", cfg.parsers)
	}
}
