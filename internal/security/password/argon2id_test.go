package password_test

import (
	"strings"
	"testing"

	"github.com/dresguerra/admingate/internal/security/password"
)

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := password.Hash("s3cr3to!")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("formato PHC inesperado: %q", phc)
	}
	if !password.Verify("s3cr3to!", phc) {
		t.Fatal("Verify debe aceptar la contraseña correcta")
	}
	if password.Verify("otra", phc) {
		t.Fatal("Verify no debe aceptar una contraseña incorrecta")
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	if _, err := password.Hash(""); err == nil {
		t.Fatal("Hash de contraseña vacía debe fallar")
	}
}

func TestHash_SaltsDiffer(t *testing.T) {
	a, _ := password.Hash("misma")
	b, _ := password.Hash("misma")
	if a == b {
		t.Fatal("dos hashes de la misma contraseña deben diferir (salt aleatorio)")
	}
}

func TestVerify_MalformedPHC(t *testing.T) {
	for _, phc := range []string{
		"",
		"plaintext",
		"$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$ZGsx",
		"$bcrypt$cost=10$xyz",
		"$argon2id$v=19$m=65536,t=3,p=1$!!notb64!!$ZGsx",
	} {
		if password.Verify("x", phc) {
			t.Fatalf("Verify aceptó un PHC malformado: %q", phc)
		}
	}
}
