// Package ftp implements an FTP/FTPS client protocol engine: a control
// channel, a data channel negotiator (EPSV/PASV/PORT), directory listing
// parsers, and the transfer operations built on top of them.
//
// # Overview
//
// This package provides:
//   - Plain FTP, explicit TLS (AUTH TLS), and implicit TLS connections
//   - EPSV with automatic PASV fallback, and PORT active mode
//   - TLS session reuse across the control and data channels
//   - Unix and DOS directory listing parsers, plus MLSD/MLST (RFC 3659)
//   - Pluggable DNS resolution, TLS provisioning, and logging
//   - Progress tracking and bandwidth limiting for transfers
//
// # Basic Usage
//
//	client, err := ftp.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	if err := client.Login("username", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
// # TLS
//
// Explicit TLS connects on port 21 and upgrades via AUTH TLS:
//
//	client, err := ftp.Dial("ftp.example.com:21",
//	    ftp.WithExplicitTLS(),
//	)
//
// Implicit TLS connects directly with TLS, typically on port 990:
//
//	client, err := ftp.Dial("ftp.example.com:990",
//	    ftp.WithImplicitTLS(),
//	)
//
// The TLS session established on the control channel is reused for data
// channels automatically; servers that require this (vsftpd, ProFTPD) need
// no extra configuration.
//
// # File Transfers
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer file.Close()
//
//	if err := client.Store("remote.txt", file); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
//	pr := &ftp.ProgressReader{
//	    Reader: file,
//	    Callback: func(bytesTransferred int64) {
//	        fmt.Printf("Uploaded: %d bytes\n", bytesTransferred)
//	    },
//	}
//	err := client.Store("remote.txt", pr)
//
// # Errors
//
// Protocol, transport and other engine failures are returned as *ftp.Error;
// a reply whose body cannot be parsed yields a plain error. Use errors.As
// to recover Kind, Command, Response, and Code:
//
//	var ferr *ftp.Error
//	if errors.As(err, &ferr) && ferr.Kind == ftp.KindProtocol {
//	    fmt.Printf("%s failed: %s (%d)\n", ferr.Command, ferr.Response, ferr.Code)
//	}
package ftp
