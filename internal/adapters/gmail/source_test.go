package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gmailapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewSourceWithService(svc, "me", 2, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestListMessageIDs(t *testing.T) {
	var queries []string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/users/me/messages") {
			http.NotFound(w, r)
			return
		}
		queries = append(queries, r.URL.Query().Get("q"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]interface{}{
				"messages":      []map[string]string{{"id": "a"}, {"id": "b"}},
				"nextPageToken": "p2",
			})
			return
		}
		writeJSON(w, map[string]interface{}{"messages": []map[string]string{{"id": "c"}}})
	})

	q := core.SearchQuery{Expression: "newer_than:30d (ご利用)"}
	ids, next, err := src.ListMessageIDs(context.Background(), q, "")
	if err != nil {
		t.Fatalf("ListMessageIDs() error = %v", err)
	}
	if len(ids) != 2 || next != "p2" {
		t.Errorf("first page = %v, %q", ids, next)
	}

	ids, next, err = src.ListMessageIDs(context.Background(), q, next)
	if err != nil {
		t.Fatalf("ListMessageIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "c" || next != "" {
		t.Errorf("second page = %v, %q", ids, next)
	}
	if len(queries) != 2 || queries[0] != q.Expression {
		t.Errorf("queries = %v", queries)
	}
}

func TestGetMessage(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte("ご利用金額 1,000円"))
	var formats []string
	var headers [][]string

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/me/messages/m1"):
			formats = append(formats, r.URL.Query().Get("format"))
			headers = append(headers, r.URL.Query()["metadataHeaders"])
			writeJSON(w, map[string]interface{}{
				"id":           "m1",
				"threadId":     "t1",
				"labelIds":     []string{"INBOX", "CATEGORY_UPDATES"},
				"internalDate": "1756600000000",
				"payload": map[string]interface{}{
					"mimeType": "multipart/alternative",
					"headers": []map[string]string{
						{"name": "From", "value": "JCB <info@qa.jcb.co.jp>"},
						{"name": "Subject", "value": "=?UTF-8?B?44GU5Yip55So44Gu44GK55+l44KJ44Gb?="},
					},
					"parts": []map[string]interface{}{
						{
							"mimeType": "text/plain",
							"headers": []map[string]string{
								{"name": "Content-Type", "value": "text/plain; charset=UTF-8"},
								{"name": "Content-Transfer-Encoding", "value": "quoted-printable"},
							},
							"body": map[string]string{"data": body},
						},
					},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]interface{}{"error": map[string]interface{}{"code": 404, "message": "Not Found"}})
		}
	})

	ctx := context.Background()
	msg, err := src.GetMessage(ctx, "m1", core.FormatMetadata)
	if err != nil {
		t.Fatalf("GetMessage(metadata) error = %v", err)
	}
	if msg.Meta.Subject != "ご利用のお知らせ" || msg.Meta.SenderDomain() != "qa.jcb.co.jp" {
		t.Errorf("Meta = %+v", msg.Meta)
	}
	if !msg.Meta.HasLabel("CATEGORY_UPDATES") || msg.Meta.Date.IsZero() {
		t.Errorf("labels/date not mapped: %+v", msg.Meta)
	}
	if msg.Payload != nil {
		t.Error("metadata fetch returned a payload")
	}

	msg, err = src.GetMessage(ctx, "m1", core.FormatFull)
	if err != nil {
		t.Fatalf("GetMessage(full) error = %v", err)
	}
	if msg.Payload == nil || len(msg.Payload.Parts) != 1 {
		t.Fatalf("Payload = %+v", msg.Payload)
	}
	part := msg.Payload.Parts[0]
	if string(part.Body) != "ご利用金額 1,000円" {
		t.Errorf("Body = %q", part.Body)
	}
	if part.Header("Content-Transfer-Encoding") != "" {
		t.Error("transfer encoding header should be dropped")
	}

	if len(formats) != 2 || formats[0] != "metadata" || formats[1] != "full" {
		t.Errorf("formats = %v", formats)
	}
	if strings.Join(headers[0], ",") != strings.Join(MetadataHeaders, ",") {
		t.Errorf("metadata headers = %v", headers[0])
	}

	if _, err := src.GetMessage(ctx, "missing", core.FormatFull); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMessage(missing) error = %v, want ErrNotFound", err)
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{"error": map[string]interface{}{"code": 404, "message": "Not Found"}})
	})

	for i := 0; i < 12; i++ {
		_, _ = src.GetMessage(context.Background(), "x", core.FormatMetadata)
	}
	if src.State() != "closed" {
		t.Errorf("breaker state = %s, want closed", src.State())
	}
}

func TestServerErrorsTripBreaker(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]interface{}{"error": map[string]interface{}{"code": 503, "message": "unavailable"}})
	})

	var err error
	for i := 0; i < 12; i++ {
		_, err = src.GetMessage(context.Background(), "x", core.FormatMetadata)
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
}
