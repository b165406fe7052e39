package email_test

import (
	"fmt"
	"motolens/internal/config"
	"motolens/internal/email"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testEmailConfig(port int) config.EmailConfig {
	return config.EmailConfig{
		SMTPHost:     "127.0.0.1",
		SMTPPort:     port,
		SMTPUsername: "mailer@example.com",
		SMTPPassword: "secret",
		FromAddress:  "noreply@example.com",
		AppURL:       "http://localhost:3000",
		SendTimeout:  200 * time.Millisecond,
	}
}

func TestSendTimesOutOnStalledServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accepts the connection and sends the greeting, then goes silent
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			fmt.Fprint(conn, "220 mail.example.com ESMTP\r\n")
		}
	}()

	svc := email.NewService(testEmailConfig(ln.Addr().(*net.TCPAddr).Port))
	defer svc.Close()

	start := time.Now()
	err = svc.SendVerificationEmail("rider@example.com", "Riley", "token")
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestSendFailsFastOnUnreachableServer(t *testing.T) {
	// Grab a free port and close it again so nothing is listening there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	svc := email.NewService(testEmailConfig(port))

	err = svc.SendPasswordResetEmail("rider@example.com", "Riley", "token")
	require.Error(t, err)
}
