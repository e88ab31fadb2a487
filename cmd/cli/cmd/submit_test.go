package cmd

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// fakeSubmissionServer answers every connection with the given line.
func fakeSubmissionServer(t *testing.T, response string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				if _, err := bufio.NewReader(c).ReadString('\n'); err != nil {
					return
				}
				c.Write([]byte(response + "\n"))
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func TestSubmitCommand_Accepted(t *testing.T) {
	resetViper()

	addr := fakeSubmissionServer(t, "OK 50")
	viper.Set("submit_addr", addr)
	viper.Set("token", "team-token")

	output := runCommand(t, "submit", "FLAG{aaaa_bbbb}")
	if !strings.Contains(output, "Flag accepted") {
		t.Errorf("expected acceptance, got: %s", output)
	}
	if !strings.Contains(output, "50 points") {
		t.Errorf("expected points, got: %s", output)
	}
}

func TestSubmitCommand_Rejected(t *testing.T) {
	resetViper()

	addr := fakeSubmissionServer(t, "ERROR flag expired")
	viper.Set("submit_addr", addr)
	viper.Set("token", "team-token")

	output := runCommand(t, "submit", "FLAG{aaaa_bbbb}")
	if !strings.Contains(output, "Flag rejected") {
		t.Errorf("expected rejection, got: %s", output)
	}
	if !strings.Contains(output, "flag expired") {
		t.Errorf("expected reason, got: %s", output)
	}
}

func TestSubmitCommand_RequiresToken(t *testing.T) {
	resetViper()
	viper.Set("submit_addr", "localhost:1")
	viper.Set("token", "")

	output := runCommand(t, "submit", "FLAG{aaaa_bbbb}")
	if !strings.Contains(output, "Team token not found") {
		t.Errorf("expected token error, got: %s", output)
	}
}

func TestSendSubmission_ProtocolLine(t *testing.T) {
	var received string
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		received, _ = bufio.NewReader(conn).ReadString('\n')
		conn.Write([]byte("OK 150\n"))
	}()

	status, detail, err := sendSubmission(ln.Addr().String(), "tok-123", "FLAG{x_y}")
	if err != nil {
		t.Fatalf("sendSubmission failed: %v", err)
	}
	<-done

	if received != "SUBMIT tok-123 FLAG{x_y}\n" {
		t.Errorf("unexpected wire line: %q", received)
	}
	if status != "OK" || detail != "150" {
		t.Errorf("got %q %q, want OK 150", status, detail)
	}
}

func TestSendSubmission_MalformedResponse(t *testing.T) {
	addr := fakeSubmissionServer(t, "WAT")

	_, _, err := sendSubmission(addr, "tok", "FLAG{x_y}")
	if err == nil || !strings.Contains(err.Error(), "unexpected response") {
		t.Errorf("expected protocol error, got %v", err)
	}
}
