package crypto

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/cometbft/cometbft/privval"
)

// PV wraps the node's ed25519 identity key. Its address is the account
// every signed request acts as.
type PV struct {
	privateKey crypto.PrivKey
	publicKey  crypto.PubKey
}

// GenFilePV creates a fresh key and writes it to keyFilePath in the
// privval key file format.
func GenFilePV(keyFilePath string) (*PV, error) {
	priv := ed25519.GenPrivKey()
	pvKey := privval.FilePVKey{
		Address: priv.PubKey().Address(),
		PubKey:  priv.PubKey(),
		PrivKey: priv,
	}
	dat, err := cmtjson.MarshalIndent(pvKey, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyFilePath, dat, 0o600); err != nil {
		return nil, err
	}
	return &PV{privateKey: priv, publicKey: priv.PubKey()}, nil
}

func LoadFilePV(keyFilePath string) *PV {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		cmtos.Exit(err.Error())
	}
	pvKey := privval.FilePVKey{}
	err = cmtjson.Unmarshal(keyJSONBytes, &pvKey)
	if err != nil {
		cmtos.Exit(fmt.Sprintf("Error reading key from %v: %v\n", keyFilePath, err))
	}

	return &PV{
		privateKey: pvKey.PrivKey,
		publicKey:  pvKey.PubKey,
	}
}

func (k *PV) PublicKey() []byte {
	return k.publicKey.Bytes()
}

func (k *PV) PublicKeyHex() string {
	return hex.EncodeToString(k.publicKey.Bytes())
}

func (k *PV) Address() string {
	return k.publicKey.Address().String()
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return k.privateKey.Sign(data)
}
