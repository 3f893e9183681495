package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func newTestClient(server *httptest.Server, prefix string) Client {
	parsed, err := url.Parse(server.URL)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(parsed.Port())
	Expect(err).NotTo(HaveOccurred())

	c, err := New(Config{
		Host:             parsed.Hostname(),
		Port:             port,
		APIKey:           "test-key",
		CollectionPrefix: prefix,
	})
	Expect(err).NotTo(HaveOccurred())
	return c
}

var _ = Describe("Config", func() {
	It("requires a host", func() {
		_, err := New(Config{Port: 6333})
		Expect(err).To(MatchError(ContainSubstring("host is required")))
	})

	It("requires a positive port", func() {
		_, err := New(Config{Host: "localhost"})
		Expect(err).To(MatchError(ContainSubstring("port must be positive")))
	})
})

var _ = Describe("ScrollPayloads", func() {
	It("pages through every point filtered by system id", func() {
		var requests []scrollRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/collections/dataagent_concepts/points/scroll"))
			Expect(r.Header.Get("api-key")).To(Equal("test-key"))

			var req scrollRequest
			Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
			requests = append(requests, req)

			w.Header().Set("Content-Type", "application/json")
			if req.Offset == nil {
				fmt.Fprint(w, `{"result":{"points":[
					{"id":1,"payload":{"name":"item","kind":"DIMENSION"}},
					{"id":2,"payload":{"name":"quantity","kind":"METRIC"}}
				],"next_page_offset":3},"status":"ok"}`)
				return
			}
			fmt.Fprint(w, `{"result":{"points":[
				{"id":3,"payload":{"name":"warehouse","kind":"DIMENSION"}}
			],"next_page_offset":null},"status":"ok"}`)
		}))
		defer server.Close()

		payloads, err := newTestClient(server, "dataagent_").ScrollPayloads(context.Background(), "concepts", "jp_erp")
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(HaveLen(3))

		Expect(requests).To(HaveLen(2))
		Expect(requests[0].Filter.Must).To(HaveLen(1))
		Expect(requests[0].Filter.Must[0].Key).To(Equal("system_id"))
		Expect(requests[0].Filter.Must[0].Match.Value).To(Equal("jp_erp"))
		Expect(requests[0].WithPayload).To(BeTrue())
		Expect(requests[0].WithVector).To(BeFalse())
		Expect(requests[1].Offset).To(BeEquivalentTo(3))

		var first struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		}
		Expect(json.Unmarshal(payloads[0], &first)).To(Succeed())
		Expect(first.Name).To(Equal("item"))
		Expect(first.Kind).To(Equal("DIMENSION"))
	})

	It("skips points without payloads", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"result":{"points":[
				{"id":1},
				{"id":2,"payload":{"name":"item"}}
			],"next_page_offset":null},"status":"ok"}`)
		}))
		defer server.Close()

		payloads, err := newTestClient(server, "").ScrollPayloads(context.Background(), "concepts", "jp_erp")
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads).To(HaveLen(1))
	})

	It("surfaces non-200 responses with the body snippet", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"status":{"error":"Collection not found"}}`)
		}))
		defer server.Close()

		_, err := newTestClient(server, "dataagent_").ScrollPayloads(context.Background(), "concepts", "jp_erp")
		Expect(err).To(MatchError(ContainSubstring("scroll dataagent_concepts")))
		Expect(err).To(MatchError(ContainSubstring("status 404")))
	})
})

var _ = Describe("Ping", func() {
	It("succeeds when the health endpoint answers", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/healthz"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		Expect(newTestClient(server, "").Ping(context.Background())).To(Succeed())
	})

	It("fails on a non-200 status", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		err := newTestClient(server, "").Ping(context.Background())
		Expect(err).To(MatchError(ContainSubstring("status 503")))
	})
})
