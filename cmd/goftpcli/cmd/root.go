// Package cmd implements goftpcli's cobra command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coldwire/goftp"
)

var (
	host     string
	port     int
	username string
	password string
	explicit bool
	implicit bool
	insecure bool
	active   bool
)

var rootCmd = &cobra.Command{
	Use:     "goftpcli",
	Short:   "A command-line client for FTP/FTPS servers",
	Version: "0.0.0",
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&host, "host", "", "FTP server host (required)")
	flags.IntVar(&port, "port", 0, "FTP server port (default 21, or 990 with --implicit-tls)")
	flags.StringVarP(&username, "user", "u", "anonymous", "username")
	flags.StringVarP(&password, "pass", "p", "", "password")
	flags.BoolVar(&explicit, "explicit-tls", false, "upgrade to TLS via AUTH TLS after connecting")
	flags.BoolVar(&implicit, "implicit-tls", false, "connect with TLS from the first byte")
	flags.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	flags.BoolVar(&active, "active", false, "use PORT active mode instead of EPSV/PASV")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(rmdirCmd)
}

// dial connects and logs in using the root command's persistent flags.
func dial() (*ftp.Client, error) {
	if host == "" {
		return nil, fmt.Errorf("--host is required")
	}

	opts := []ftp.Option{ftp.WithCredentials(username, password)}
	if port != 0 {
		opts = append(opts, ftp.WithPort(port))
	}
	if explicit {
		opts = append(opts, ftp.WithExplicitTLS())
	}
	if implicit {
		opts = append(opts, ftp.WithImplicitTLS())
	}
	if insecure {
		opts = append(opts, ftp.WithIgnoreCertificateErrors())
	}
	if active {
		opts = append(opts, ftp.WithActiveMode())
	}

	c, err := ftp.DialConfig(ftp.Config{Host: host, UsePassive: true}, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	if err := c.Login(username, password); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("login: %w", err)
	}

	return c, nil
}
