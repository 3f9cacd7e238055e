package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/kubev2v/pdf-extractor/internal/config"
	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

var _ = Describe("commands", func() {
	Describe("flags", func() {
		It("binds pool flags to the configuration", func() {
			cfg := config.NewConfigurationWithOptionsAndDefaults()
			runCmd := NewRunCommand(cfg)

			Expect(runCmd.Flags().Parse([]string{
				"--workers", "4",
				"--isolation", "goroutine",
				"--job-timeout", "30s",
				"--cors-origins", "http://a,http://b",
			})).To(Succeed())

			Expect(cfg.Pool.Workers).To(Equal(4))
			Expect(cfg.Pool.Isolation).To(Equal(config.IsolationGoroutine))
			Expect(cfg.Pool.JobTimeout).To(Equal(30 * time.Second))
			Expect(cfg.Server.CORSOrigins).To(Equal([]string{"http://a", "http://b"}))
		})

		It("fills unset flags from a config file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
			Expect(os.WriteFile(path, []byte("workers: 3\nhttp-port: 9000\ncors-origins:\n  - http://x\n  - http://y\n"), 0o600)).To(Succeed())

			cfg := config.NewConfigurationWithOptionsAndDefaults()
			root := &cobra.Command{Use: "pdf-extractor"}
			root.PersistentFlags().String("config", "", "")
			runCmd := NewRunCommand(cfg)
			root.AddCommand(runCmd)
			Expect(runCmd.ParseFlags([]string{"--config", path, "--http-port", "8000"})).To(Succeed())

			Expect(readConfigFile(runCmd, nil)).To(Succeed())
			Expect(cfg.Pool.Workers).To(Equal(3))
			Expect(cfg.Server.HTTPPort).To(Equal(8000))
			Expect(cfg.Server.CORSOrigins).To(Equal([]string{"http://x", "http://y"}))
		})
	})

	Describe("setupLogging", func() {
		It("rejects unknown levels", func() {
			cfg := config.NewConfigurationWithOptionsAndDefaults(config.WithLogLevel("loud"))
			Expect(setupLogging(cfg)).NotTo(Succeed())
		})

		It("accepts json output", func() {
			cfg := config.NewConfigurationWithOptionsAndDefaults(config.WithLogFormat("json"), config.WithLogLevel("debug"))
			Expect(setupLogging(cfg)).To(Succeed())
		})
	})

	Describe("extractFiles", func() {
		BeforeEach(func() {
			color.NoColor = true
		})

		It("prints results in argument order and counts failures", func() {
			ext := pool.ExtractorFunc(func(_ context.Context, job pool.Job) (string, error) {
				if strings.HasPrefix(job.Label, "bad") {
					return "", errors.New("no text layer")
				}
				return "text of " + job.Label, nil
			})
			p, err := pool.New(2, pool.NewInProcessSpawner(ext))
			Expect(err).NotTo(HaveOccurred())
			defer p.Close()

			var out bytes.Buffer
			failed := extractFiles(context.Background(), p, []string{"/tmp/a.pdf", "/tmp/bad.pdf", "/tmp/c.pdf"}, &out, false)

			Expect(failed).To(Equal(1))
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			Expect(lines).To(HaveLen(5))
			Expect(lines[0]).To(HavePrefix("✓ /tmp/a.pdf"))
			Expect(lines[1]).To(Equal("text of a.pdf"))
			Expect(lines[2]).To(HavePrefix("✗ /tmp/bad.pdf"))
			Expect(lines[2]).To(ContainSubstring("no text layer"))
			Expect(lines[3]).To(HavePrefix("✓ /tmp/c.pdf"))
		})
	})

	Describe("preview", func() {
		It("truncates long text unless full is requested", func() {
			long := strings.Repeat("é", previewLength+10)
			Expect([]rune(preview(long, false))).To(HaveLen(previewLength + 1))
			Expect(preview(long, true)).To(Equal(long))
			Expect(preview("  short \n", false)).To(Equal("short"))
		})
	})
})
