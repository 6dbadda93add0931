package ftp

import (
	"fmt"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// fsMockServer is a minimal scripted FTP server backed by a real directory
// on disk, used to exercise MakeDir/RemoveDir/List/Walk against realistic
// MKD/RMD/LIST semantics without a full server implementation.
type fsMockServer struct {
	listener net.Listener
	addr     string
	dataL    net.Listener
	root     string
	cwd      string
	done     chan struct{}
}

func newFSMockServer(t *testing.T) *fsMockServer {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	return &fsMockServer{
		listener: l,
		addr:     l.Addr().String(),
		root:     t.TempDir(),
		cwd:      "/",
		done:     make(chan struct{}),
	}
}

func (s *fsMockServer) resolve(arg string) string {
	if arg == "" {
		arg = s.cwd
	}
	if !strings.HasPrefix(arg, "/") {
		arg = filepath.Join(s.cwd, arg)
	}
	return filepath.Join(s.root, filepath.Clean(arg))
}

func (s *fsMockServer) virtual(arg string) string {
	if arg == "" {
		return s.cwd
	}
	if !strings.HasPrefix(arg, "/") {
		return filepath.Join(s.cwd, arg)
	}
	return filepath.Clean(arg)
}

func (s *fsMockServer) openData() (net.Listener, error) {
	if s.dataL != nil {
		s.dataL.Close()
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s.dataL = l
	return l, nil
}

func (s *fsMockServer) pasvResponse() string {
	_, portStr, _ := net.SplitHostPort(s.dataL.Addr().String())
	port := 0
	fmt.Sscanf(portStr, "%d", &port)
	return fmt.Sprintf("227 Entering Passive Mode (127,0,0,1,%d,%d).", port/256, port%256)
}

func (s *fsMockServer) start() {
	go func() {
		defer close(s.done)
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		fmt.Fprintf(conn, "220 Service ready\r\n")
		tc := textproto.NewConn(conn)
		defer tc.Close()

		for {
			line, err := tc.ReadLine()
			if err != nil {
				return
			}
			parts := strings.SplitN(line, " ", 2)
			cmd := strings.ToUpper(parts[0])
			arg := ""
			if len(parts) > 1 {
				arg = parts[1]
			}

			switch cmd {
			case "USER":
				_ = tc.PrintfLine("331 Need password.")
			case "PASS":
				_ = tc.PrintfLine("230 Logged in.")
			case "TYPE":
				_ = tc.PrintfLine("200 OK.")
			case "EPSV":
				_ = tc.PrintfLine("502 Not implemented.")
			case "PASV":
				if _, err := s.openData(); err != nil {
					_ = tc.PrintfLine("425 Cannot open data connection.")
					continue
				}
				_ = tc.PrintfLine("%s", s.pasvResponse())
			case "PWD":
				_ = tc.PrintfLine("257 \"%s\" is current directory.", s.cwd)
			case "CWD":
				target := s.resolve(arg)
				info, err := os.Stat(target)
				if err != nil || !info.IsDir() {
					_ = tc.PrintfLine("550 Failed to change directory.")
					continue
				}
				s.cwd = s.virtual(arg)
				_ = tc.PrintfLine("250 Directory changed.")
			case "MKD":
				target := s.resolve(arg)
				if err := os.Mkdir(target, 0755); err != nil {
					_ = tc.PrintfLine("550 Create directory operation failed.")
					continue
				}
				_ = tc.PrintfLine("257 \"%s\" created.", s.virtual(arg))
			case "RMD":
				target := s.resolve(arg)
				entries, err := os.ReadDir(target)
				if err != nil {
					_ = tc.PrintfLine("550 No such directory.")
					continue
				}
				if len(entries) > 0 {
					_ = tc.PrintfLine("550 Directory not empty.")
					continue
				}
				if err := os.Remove(target); err != nil {
					_ = tc.PrintfLine("550 Remove directory failed.")
					continue
				}
				_ = tc.PrintfLine("250 Directory removed.")
			case "DELE":
				target := s.resolve(arg)
				if err := os.Remove(target); err != nil {
					_ = tc.PrintfLine("550 Delete operation failed.")
					continue
				}
				_ = tc.PrintfLine("250 Delete operation successful.")
			case "STOR":
				_ = tc.PrintfLine("150 Opening data connection.")
				dconn, err := s.dataL.Accept()
				if err != nil {
					return
				}
				target := s.resolve(arg)
				f, ferr := os.Create(target)
				if ferr == nil {
					buf := make([]byte, 32*1024)
					for {
						n, rerr := dconn.Read(buf)
						if n > 0 {
							f.Write(buf[:n])
						}
						if rerr != nil {
							break
						}
					}
					f.Close()
				}
				dconn.Close()
				_ = tc.PrintfLine("226 Transfer complete.")
			case "RETR":
				_ = tc.PrintfLine("150 Opening data connection.")
				dconn, err := s.dataL.Accept()
				if err != nil {
					return
				}
				target := s.resolve(arg)
				data, _ := os.ReadFile(target)
				dconn.Write(data)
				dconn.Close()
				_ = tc.PrintfLine("226 Transfer complete.")
			case "LIST":
				_ = tc.PrintfLine("150 Here comes the directory listing.")
				dconn, err := s.dataL.Accept()
				if err != nil {
					return
				}
				target := s.resolve(arg)
				entries, _ := os.ReadDir(target)
				names := make([]string, 0, len(entries))
				for _, e := range entries {
					names = append(names, e.Name())
				}
				sort.Strings(names)
				var sb strings.Builder
				for _, name := range names {
					info, err := os.Stat(filepath.Join(target, name))
					if err != nil {
						continue
					}
					if info.IsDir() {
						fmt.Fprintf(&sb, "drwxr-xr-x   2 user  group         0 Jan  1 00:00 %s\r\n", name)
					} else {
						fmt.Fprintf(&sb, "-rw-r--r--   1 user  group  %8d Jan  1 00:00 %s\r\n", info.Size(), name)
					}
				}
				dconn.Write([]byte(sb.String()))
				dconn.Close()
				_ = tc.PrintfLine("226 Transfer complete.")
			case "QUIT":
				_ = tc.PrintfLine("221 Bye.")
				return
			default:
				_ = tc.PrintfLine("502 Command not implemented.")
			}
		}
	}()
}

func (s *fsMockServer) stop() {
	s.listener.Close()
	if s.dataL != nil {
		s.dataL.Close()
	}
	<-s.done
}
