package forked_test

import (
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/icecave/forkstream/forked"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("RedisFactory", func() {
	var (
		subject   *forked.RedisFactory
		mockRedis *miniredis.Miniredis
		client    *redis.Client
	)

	BeforeEach(func() {
		var err error
		mockRedis, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		client = redis.NewClient(&redis.Options{
			Addr: mockRedis.Addr(),
		})

		subject = &forked.RedisFactory{
			Client:    client,
			KeyPrefix: "capture:",
		}
	})

	AfterEach(func() {
		client.Close()
		mockRedis.Close()
	})

	It("appends the capture to a key named by the key parameter", func() {
		stream, err := subject.NewStream(forked.Params{"cacheKey": "abc"})
		Expect(err).NotTo(HaveOccurred())

		_, err = stream.Write([]byte("<first>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(stream.Flush()).To(Succeed())

		_, err = stream.Write([]byte("<second>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(stream.Flush()).To(Succeed())

		Expect(stream.Close()).To(Succeed())

		content, err := mockRedis.Get("capture:abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal("<first><second>"))
	})

	It("replaces a previous capture under the same key", func() {
		mockRedis.Set("capture:abc", "<stale>")

		stream, err := subject.NewStream(forked.Params{"cacheKey": "abc"})
		Expect(err).NotTo(HaveOccurred())

		_, err = stream.Write([]byte("<fresh>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(stream.Close()).To(Succeed())

		content, err := mockRedis.Get("capture:abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal("<fresh>"))
	})

	It("flushes any buffered chunks on close", func() {
		stream, err := subject.NewStream(forked.Params{"cacheKey": "abc"})
		Expect(err).NotTo(HaveOccurred())

		_, err = stream.Write([]byte("<unflushed>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(stream.Close()).To(Succeed())

		content, err := mockRedis.Get("capture:abc")
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal("<unflushed>"))
	})

	It("deletes the capture when aborted", func() {
		stream, err := subject.NewStream(forked.Params{"cacheKey": "abc"})
		Expect(err).NotTo(HaveOccurred())

		_, err = stream.Write([]byte("<partial>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(stream.Flush()).To(Succeed())

		stream.Abort()
		Expect(stream.Close()).To(Succeed())

		Expect(mockRedis.Exists("capture:abc")).To(BeFalse())
	})

	It("applies the configured expiry on close", func() {
		subject.Expire = time.Minute

		stream, err := subject.NewStream(forked.Params{"cacheKey": "abc"})
		Expect(err).NotTo(HaveOccurred())

		_, err = stream.Write([]byte("<expiring>"))
		Expect(err).NotTo(HaveOccurred())
		Expect(stream.Close()).To(Succeed())

		Expect(mockRedis.TTL("capture:abc")).To(Equal(time.Minute))
	})
})
