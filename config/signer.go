package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/paritytech/parity-bridges-common/core"
)

// SignerConfig locates the relay operator's own key material. The relay
// never signs on behalf of end users (§1) — this is the sole key a running
// process holds.
//
// At least one of KeyFile or Seed must be set; when both are, Seed is
// used. Seed accepts the development
// "//Name" convention (e.g. "//Alice") or an arbitrary URI-style seed
// string; either is expanded deterministically into a key, so the same
// seed always yields the same signer.
type SignerConfig struct {
	// KeyFile is a PEM-encoded EC private key file.
	KeyFile string `yaml:"key_file"`
	// Seed is a development seed or URI, for test and staging bridges
	// where provisioning a PEM file is unnecessary ceremony.
	Seed string `yaml:"seed"`
}

// LoadSigner resolves cfg into a core.Signer, preferring an explicit Seed
// over KeyFile when both happen to be set.
func LoadSigner(cfg SignerConfig) (core.Signer, error) {
	switch {
	case cfg.Seed != "":
		return signerFromSeed(cfg.Seed)
	case cfg.KeyFile != "":
		return signerFromFile(cfg.KeyFile)
	default:
		return nil, errors.New("signer.key_file or signer.seed is required")
	}
}

func signerFromFile(keyFile string) (core.Signer, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading signer key file %s", keyFile)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Newf("no PEM block found in %s", keyFile)
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing EC private key from %s", keyFile)
	}
	return &fileSigner{key: key}, nil
}

// signerFromSeed derives a P-256 key deterministically from a development
// seed or URI. "//Name" is the dev-seed convention: the same name always
// produces the same key, so bridges wired up with "//Alice"/"//Bob" in
// their config reproduce the same signer across restarts without a key
// file on disk. Any other string is hashed the same way, treating it as an
// opaque URI-style seed.
func signerFromSeed(seed string) (core.Signer, error) {
	if seed == "//" || seed == "" {
		return nil, errors.New("signer.seed must not be empty")
	}
	material := seed
	if name, ok := strings.CutPrefix(seed, "//"); ok {
		if name == "" {
			return nil, errors.New(`signer.seed "//..." must name a development account`)
		}
		material = "bridge-relay dev seed:" + name
	}
	digest := sha256.Sum256([]byte(material))

	curve := elliptic.P256()
	order := curve.Params().N
	d := new(big.Int).SetBytes(digest[:])
	d.Mod(d, new(big.Int).Sub(order, big.NewInt(1)))
	d.Add(d, big.NewInt(1))

	key := new(ecdsa.PrivateKey)
	key.Curve = curve
	key.D = d
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(d.Bytes())
	return &fileSigner{key: key}, nil
}

type fileSigner struct {
	key *ecdsa.PrivateKey
}

func (s *fileSigner) Sign(digest []byte) ([]byte, error) {
	return ecdsa.SignASN1(rand.Reader, s.key, digest)
}

func (s *fileSigner) GetPublicKey() (ecdsa.PublicKey, error) {
	return s.key.PublicKey, nil
}

func (s *fileSigner) AccountID() core.RelayerID {
	var id core.RelayerID
	copy(id[:], s.key.PublicKey.X.Bytes())
	return id
}
