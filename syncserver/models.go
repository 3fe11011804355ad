package syncserver

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/exlinc/golang-utils/jsonhttp"
	"github.com/pkg/errors"
)

type RepoPushEventRequest struct {
	Ref        string     `json:"ref"`
	Repository Repository `json:"repository"`
	Commits    []Commit   `json:"commits"`
}

type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
}

type Commit struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// secureJSONDecode verifies the webhook HMAC before touching the payload and
// writes the error response itself, so handlers just bail on error.
func secureJSONDecode(w http.ResponseWriter, r *http.Request, hubSecret string, outStruct interface{}) error {
	buf := bytes.Buffer{}
	buf.ReadFrom(r.Body)
	reqBody := buf.Bytes()
	icSig := r.Header.Get("X-Hub-Signature-256")
	if icSig == "" || !strings.HasPrefix(icSig, "sha256=") {
		jsonhttp.JSONForbiddenError(w, "Missing request signature", "")
		return errors.New("missing signature")
	}
	icSig = strings.TrimPrefix(icSig, "sha256=")
	computedSignatureHMAC := hmac.New(sha256.New, []byte(hubSecret))
	computedSignatureHMAC.Write(reqBody)
	computedSig := fmt.Sprintf("%x", computedSignatureHMAC.Sum(nil))
	if !hmac.Equal([]byte(icSig), []byte(computedSig)) {
		jsonhttp.JSONForbiddenError(w, "Invalid request signature", "")
		return errors.New("invalid signature")
	}
	if err := json.Unmarshal(reqBody, outStruct); err != nil {
		jsonhttp.JSONBadRequestError(w, "Invalid JSON", "")
		return err
	}
	return nil
}
