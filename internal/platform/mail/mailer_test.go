package mail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestPasswordResetBody(t *testing.T) {
	body := PasswordResetBody("4821")
	if !strings.Contains(body, "4821") {
		t.Errorf("body missing code: %q", body)
	}
	if !strings.Contains(body, "10 minutes") {
		t.Errorf("body missing expiry notice: %q", body)
	}
}

func TestSendHonorsCancelledContext(t *testing.T) {
	m := NewSMTPMailer("localhost", 2525, "", "", "noreply@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Send(ctx, "user@example.com", "subject", "body"); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// startFakeSMTP runs a one-shot SMTP server and returns its address plus a
// channel that delivers the DATA payload once a message is accepted.
func startFakeSMTP(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	dataCh := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		br := bufio.NewReader(conn)
		fmt.Fprintf(conn, "220 fake ready\r\n")
		var data strings.Builder
		inData := false
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if strings.TrimRight(line, "\r\n") == "." {
					inData = false
					dataCh <- data.String()
					fmt.Fprintf(conn, "250 ok\r\n")
					continue
				}
				data.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimRight(line, "\r\n")); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				fmt.Fprintf(conn, "250 fake\r\n")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				fmt.Fprintf(conn, "354 go ahead\r\n")
			case strings.HasPrefix(cmd, "QUIT"):
				fmt.Fprintf(conn, "221 bye\r\n")
				return
			default:
				fmt.Fprintf(conn, "250 ok\r\n")
			}
		}
	}()
	return ln.Addr().String(), dataCh
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, port
}

func TestSendDeliversMessage(t *testing.T) {
	addr, dataCh := startFakeSMTP(t)
	host, port := splitAddr(t, addr)

	m := NewSMTPMailer(host, port, "", "", "noreply@example.com")
	if err := m.Send(context.Background(), "user@example.com", PasswordResetSubject, PasswordResetBody("4821")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case data := <-dataCh:
		for _, want := range []string{"To: user@example.com", "Subject: " + PasswordResetSubject, "4821"} {
			if !strings.Contains(data, want) {
				t.Errorf("message missing %q:\n%s", want, data)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("server never received the message")
	}
}

func TestSendDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	host, port := splitAddr(t, addr)

	m := NewSMTPMailer(host, port, "", "", "noreply@example.com")
	err = m.Send(context.Background(), "user@example.com", "subject", "body")
	if err == nil || !strings.Contains(err.Error(), "dial smtp") {
		t.Errorf("expected a dial error, got %v", err)
	}
}

func TestSendTimesOutOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()
	host, port := splitAddr(t, ln.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	m := NewSMTPMailer(host, port, "", "", "noreply@example.com")
	start := time.Now()
	if err := m.Send(ctx, "user@example.com", "subject", "body"); err == nil {
		t.Fatal("expected an error from a server that never greets")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("send took %v, deadline not honored", elapsed)
	}
}
