package config

import (
	"flag"
	"os"
	"time"

	"github.com/mkarpenko/keywarden/internal/flagx"
)

// parseFlags populates selected watchdog Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-s string   claim token HMAC secret key
//	-k string   envelope private key (base64)
//	-K string   envelope public key (base64)
//	-i int      tick interval, seconds
//	-g int      self-destruct grace period, minutes
//	-w int      warning cooldown floor, seconds
//	-m string   SMTP host
//	-o int      SMTP port
//	-u string   SMTP user
//	-p string   SMTP password
//	-f string   mail From address
//	-n          dry run (log mail instead of sending)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-d", "-s", "-k", "-K", "-i", "-g", "-w", "-m", "-o", "-u", "-p", "-f", "-n",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.EnvelopePrivateKey, "k", config.EnvelopePrivateKey, "envelope private key (base64)")
	fs.StringVar(&config.EnvelopePublicKey, "K", config.EnvelopePublicKey, "envelope public key (base64)")

	tickInterval := fs.Int("i", int(config.TickInterval.Seconds()), "tick interval (in seconds)")
	gracePeriod := fs.Int("g", int(config.GracePeriod.Minutes()), "grace period (in minutes)")
	warnCooldown := fs.Int("w", int(config.WarnCooldown.Seconds()), "warning cooldown (in seconds)")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "o", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "u", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "p", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.MailFrom, "f", config.MailFrom, "mail From address")
	fs.BoolVar(&config.DryRun, "n", config.DryRun, "dry run (log mail instead of sending)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TickInterval = time.Duration(*tickInterval) * time.Second
	config.GracePeriod = time.Duration(*gracePeriod) * time.Minute
	config.WarnCooldown = time.Duration(*warnCooldown) * time.Second
}
