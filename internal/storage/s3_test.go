package storage_test

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/crmrelay/core/config"
	"basegraph.app/crmrelay/internal/storage"
	"basegraph.app/crmrelay/internal/storage/storagetest"
)

var _ = Describe("S3ObjectStore", func() {
	var (
		bucket *storagetest.Bucket
		store  storage.ObjectStore
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		bucket = storagetest.NewBucket("relay-files")
		store = storage.NewS3ObjectStore(config.StorageConfig{
			AccessKeyID:     "AKID",
			SecretAccessKey: "SECRET",
			Endpoint:        bucket.Endpoint(),
			Bucket:          "relay-files",
			PublicBaseURL:   bucket.PublicBase() + "/",
			Region:          "auto",
			Timeout:         5 * time.Second,
		}, nil)
	})

	AfterEach(func() {
		bucket.Close()
	})

	It("uploads a signed path-style PUT with the content type", func() {
		err := store.PutObject(ctx, storage.PutObjectParams{
			Key:         "attachments/file.pdf",
			Body:        []byte("%PDF-1.7 body"),
			ContentType: "application/pdf",
		})
		Expect(err).NotTo(HaveOccurred())

		obj, ok := bucket.Object("attachments/file.pdf")
		Expect(ok).To(BeTrue())
		Expect(obj.Body).To(Equal([]byte("%PDF-1.7 body")))
		Expect(obj.ContentType).To(Equal("application/pdf"))
		Expect(obj.Authorization).To(HavePrefix("AWS4-HMAC-SHA256 Credential=AKID/"))
	})

	It("serves the uploaded bytes back from the public URL", func() {
		payload := []byte{0x00, 0xFF, 0x10, 'r', 'e', 'l', 'a', 'y'}
		Expect(store.PutObject(ctx, storage.PutObjectParams{
			Key:         "attachments/blob.bin",
			Body:        payload,
			ContentType: "application/octet-stream",
		})).To(Succeed())

		publicURL := store.PublicURL("attachments/blob.bin")
		Expect(publicURL).To(Equal(bucket.PublicBase() + "/attachments/blob.bin"))

		resp, err := http.Get(publicURL)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		served, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(served).To(Equal(payload))
	})

	It("returns an error when the bucket rejects the upload", func() {
		bucket.FailPuts()

		err := store.PutObject(ctx, storage.PutObjectParams{Key: "attachments/x", Body: []byte("x"), ContentType: "text/plain"})
		Expect(err).To(MatchError(ContainSubstring("put object relay-files/attachments/x")))
	})
})

var _ = Describe("JoinPublicURL", func() {
	It("concatenates base and key", func() {
		Expect(storage.JoinPublicURL("https://files.example.com", "attachments/file.pdf")).
			To(Equal("https://files.example.com/attachments/file.pdf"))
	})

	It("does not double the separator", func() {
		Expect(storage.JoinPublicURL("https://files.example.com/", "attachments/a.png")).
			To(Equal("https://files.example.com/attachments/a.png"))
	})

	It("escapes characters that are not valid in a path segment", func() {
		Expect(storage.JoinPublicURL("https://f.example.com", "attachments/my file.pdf")).
			To(Equal("https://f.example.com/attachments/my%20file.pdf"))
	})
})
