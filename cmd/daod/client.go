package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/helixdao/dao-app/crypto"
	"github.com/helixdao/dao-app/service"
)

// postSigned signs payload with the key at keyPath and posts the envelope
// to url+path, printing the response body.
func postSigned(url, path, keyPath string, payload any) error {
	dat, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	pv := crypto.LoadFilePV(keyPath)
	sig, err := pv.Sign(dat)
	if err != nil {
		return fmt.Errorf("sign err: %v", err)
	}
	env := service.Envelope{
		PubKey:    pv.PublicKeyHex(),
		Signature: hex.EncodeToString(sig),
		Payload:   dat,
	}
	fmt.Println("address:", pv.Address())
	return post(url, path, env)
}

func post(url, path string, body any) error {
	dat, err := json.Marshal(body)
	if err != nil {
		return err
	}
	res, err := http.Post(url+path, "application/json", bytes.NewReader(dat))
	if err != nil {
		return fmt.Errorf("post %v err: %v", path, err)
	}
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
