package httpapi

import (
	"fmt"
	"io"
	"math"
	"net/http"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
)

// maxRequestBody caps the request body size for both protobuf and JSON
// payloads. An access request is well under 200 bytes either way.
const maxRequestBody = 4096

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "application/x-protobuf" ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

// readProto reads the request body and unmarshals it into msg.
func readProto(r *http.Request, msg proto.Message) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	return proto.Unmarshal(body, msg)
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// ── Access ───────────────────────────────────────────────────────────────────

// accessRequestFromStruct reads the same keys as the JSON body. Numbers
// arrive as doubles and must be whole.
func accessRequestFromStruct(s *structpb.Struct) (types.AccessRequest, error) {
	var req types.AccessRequest
	for k, v := range s.GetFields() {
		switch k {
		case "user_id":
			n, err := wholeNumber(k, v, math.MinInt32, math.MaxInt32)
			if err != nil {
				return req, err
			}
			req.UserID = int32(n)
		case "pass_id":
			if _, ok := v.GetKind().(*structpb.Value_NullValue); ok {
				continue
			}
			n, err := wholeNumber(k, v, -maxExactDouble, maxExactDouble)
			if err != nil {
				return req, err
			}
			req.PassID = &n
		case "module_id":
			req.ModuleID = v.GetStringValue()
		case "requested_at":
			req.RequestedAt = v.GetStringValue()
		default:
			return req, fmt.Errorf("unknown field %q", k)
		}
	}
	return req, nil
}

// maxExactDouble is the largest magnitude below which every integer is a
// double.
const maxExactDouble = 1 << 53

func wholeNumber(key string, v *structpb.Value, lo, hi float64) (int64, error) {
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	f := nv.NumberValue
	if f != math.Trunc(f) || f < lo || f > hi {
		return 0, fmt.Errorf("%s must be a whole number in range", key)
	}
	return int64(f), nil
}

func accessResponseToStruct(r types.AccessResponse) (*structpb.Struct, error) {
	fields := map[string]any{
		"ok":            r.OK,
		"granted":       r.Granted,
		"reason":        r.Reason,
		"user_id":       r.UserID,
		"pass_id":       r.PassID,
		"sessions_left": r.SessionsLeft,
		"server_time":   r.ServerTime,
	}
	if r.Method != "" {
		fields["method"] = r.Method
	}
	return structpb.NewStruct(fields)
}
