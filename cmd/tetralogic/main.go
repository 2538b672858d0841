// tetralogic connects a TETRA radio over its PEI and runs the session until it is interrupted.
// Events are written to stdout one per line, so a script can act on them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/kikosgc/svxlink/com"
	"github.com/kikosgc/svxlink/config"
	"github.com/kikosgc/svxlink/inject"
	"github.com/kikosgc/svxlink/pei"
	"github.com/kikosgc/svxlink/serial"
)

func main() {
	configFile := pflag.StringP("config", "c", "/etc/svxlink/svxlink.conf", "Configuration file, YAML if it ends with .yaml, svxlink INI otherwise.")
	section := pflag.StringP("section", "s", config.DefaultSection, "Section of the INI file.")
	port := pflag.StringP("port", "p", "", "Serial port of the PEI, overrides the configuration.")
	debug := pflag.IntP("debug", "d", -1, "Debug verbosity 0-3, overrides the configuration.")
	help := pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	log := logrus.New()
	cfg, err := config.Load(*configFile, *section)
	if err != nil {
		log.Fatal(err)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *debug >= 0 {
		cfg.Debug = *debug
	}
	if err := cfg.Validate(log); err != nil {
		log.Fatal(err)
	}
	log.SetLevel(cfg.LogLevel())

	if err := run(cfg, log); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	device, err := serial.Open(serial.Options{PortName: cfg.Port, BaudRate: cfg.BaudRate})
	if err != nil {
		return err
	}
	defer device.Close()

	link := com.NewLink(device)
	if cfg.Trace != "" {
		trace, err := openTrace(cfg.Trace, time.Now())
		if err != nil {
			return err
		}
		defer trace.Close()
		link = com.NewLinkWithTrace(device, trace)
	}

	session, err := pei.New(cfg, link, collaborators(os.Stdout, log), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SDSPTY != "" {
		channel, err := inject.Open(cfg.SDSPTY)
		if err != nil {
			return err
		}
		defer channel.Close()
		log.Infof("SDS injection on %s (%s)", cfg.SDSPTY, channel.Name())
		go func() {
			err := channel.Listen(func(line string) {
				if err := session.Inject(line); err != nil {
					log.Warnf("cannot inject %q: %v", line, err)
				}
			})
			if err != nil {
				log.Errorf("SDS injection stopped: %v", err)
			}
		}()
	}

	err = session.Run(ctx, com.ReadLoop(device))
	if errors.Is(err, pei.ErrLinkClosed) {
		return fmt.Errorf("lost the radio on %s: %w", cfg.Port, err)
	}
	return err
}

// openTrace creates the trace file, its name may contain strftime conversions.
func openTrace(pattern string, now time.Time) (*os.File, error) {
	filename, err := strftime.Format(pattern, now)
	if err != nil {
		return nil, fmt.Errorf("invalid trace file name %q: %w", pattern, err)
	}
	result, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open trace file: %w", err)
	}
	return result, nil
}

// collaborators writes the events to the given writer. The audio path, the APRS relay and the sync feed
// are not part of this executable, their requests are logged.
func collaborators(events io.Writer, log logrus.FieldLogger) pei.Collaborators {
	return pei.Collaborators{
		Events: pei.EventHandlerFunc(func(e pei.Event) {
			fmt.Fprintln(events, e)
		}),
		Squelch: pei.SquelchFunc(func(open bool) {
			log.Debugf("squelch open: %t", open)
		}),
		Relay: pei.RelayFunc(func(call string, message string) {
			log.Infof("APRS %s>%s", call, message)
		}),
		Publisher: pei.PublisherFunc(func(topic string, payload []byte) {
			log.Debugf("%s: %s", topic, payload)
		}),
		DTMF: pei.DTMFInjectorFunc(func(digits string) {
			log.Infof("DTMF %s", digits)
		}),
	}
}
