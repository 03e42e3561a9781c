// Package encoding wraps CBOR encoding for snapshots on disk and over HTTP.
package encoding

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// ContentTypeCBOR is the media type for CBOR bodies.
const ContentTypeCBOR = "application/cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Time: cbor.TimeRFC3339Nano,
		Sort: cbor.SortCanonical,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// MarshalCBOR encodes data to CBOR format. Times are RFC 3339 strings with
// nanoseconds and map keys are sorted, so equal values encode identically.
func MarshalCBOR(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalCBOR decodes CBOR data
func UnmarshalCBOR(data []byte, v interface{}) error {
	return decMode.Unmarshal(data, v)
}

// AcceptsCBOR reports whether an Accept header asks for CBOR.
func AcceptsCBOR(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == ContentTypeCBOR {
			return true
		}
	}
	return false
}

// WriteCBOR encodes v and writes it with the CBOR content type.
func WriteCBOR(w http.ResponseWriter, status int, v interface{}) error {
	body, err := MarshalCBOR(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", ContentTypeCBOR)
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// FetchCBOR performs a GET asking for CBOR and decodes the response into v.
func FetchCBOR(ctx context.Context, client *http.Client, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", ContentTypeCBOR)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return ReadCBORResponse(resp, v)
}

// ReadCBORResponse reads and decodes CBOR response
func ReadCBORResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return UnmarshalCBOR(body, v)
}
