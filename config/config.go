// Package config loads and validates the configuration of the TetraLogic engine, either from YAML
// or from an svxlink style INI file.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kikosgc/svxlink/ctrl"
	"github.com/kikosgc/svxlink/directory"
	"github.com/kikosgc/svxlink/serial"
	"github.com/kikosgc/svxlink/tetra"
)

// ErrInvalid is wrapped by all validation errors.
var ErrInvalid = errors.New("invalid configuration")

// Defaults
const (
	DefaultGSSI             = "1"
	DefaultProximityWarning = 3.1
	DefaultTimeBetweenSDS   = time.Hour
	DefaultMaxTextLength    = 120
	DefaultActivityTimeout  = 10 * time.Second
	DefaultCommandTimeout   = 2 * time.Second
	DefaultBreakTimeout     = 3 * time.Second

	MaxMCC               = 901
	MaxMNC               = 16383
	MaxWelcomeMessageLen = 100
	MinUserDefinedState  = 0x8000
	WelcomeMessagePrefix = "Welcome TETRA-User@"
	BroadcastDMOOn       = "DMO_ON"
	BroadcastDMOOff      = "DMO_OFF"
	BroadcastProximity   = "PROXIMITY"
)

// Config of the TetraLogic engine.
type Config struct {
	Callsign            string            `yaml:"callsign"`
	MCC                 uint              `yaml:"mcc"`
	MNC                 uint              `yaml:"mnc"`
	ISSI                string            `yaml:"issi"`
	GSSI                string            `yaml:"gssi"`
	Port                string            `yaml:"port"`
	BaudRate            uint              `yaml:"baud"`
	InitCommands        []string          `yaml:"init_pei"`
	EndCommand          string            `yaml:"end_cmd"`
	OperatingMode       string            `yaml:"operating_mode"`
	Talkgroup           string            `yaml:"talkgroup"`
	APRSPath            string            `yaml:"aprs_path"`
	InfoSDS             string            `yaml:"info_sds"`
	DefaultIcon         string            `yaml:"default_aprs_icon"`
	SDSPTY              string            `yaml:"sds_pty"`
	Users               []User            `yaml:"users"`
	WelcomeMessages     map[int]string    `yaml:"sds_on_useractivity"`
	StateCommands       map[uint16]string `yaml:"sds_to_command"`
	StateTexts          map[uint16]string `yaml:"tetra_status"`
	Broadcast           []string          `yaml:"sds_to_others_on_activity"`
	ProximityWarning    float64           `yaml:"proximity_warning"`
	TimeBetweenSDS      time.Duration     `yaml:"time_between_sds"`
	Latitude            float64           `yaml:"latitude"`
	Longitude           float64           `yaml:"longitude"`
	RegistrationPattern string            `yaml:"registration_pattern"`
	MaxTextLength       int               `yaml:"max_text_length"`
	Timers              Timers            `yaml:"timers"`
	Debug               int               `yaml:"debug"`
	Trace               string            `yaml:"trace"`
}

// User is a preconfigured TETRA user.
type User struct {
	TSI     string `yaml:"tsi"`
	Call    string `yaml:"call"`
	Name    string `yaml:"name"`
	Icon    string `yaml:"icon"`
	Comment string `yaml:"comment"`
}

// Timers of the PEI session.
type Timers struct {
	Activity time.Duration `yaml:"activity"`
	Command  time.Duration `yaml:"command"`
	Break    time.Duration `yaml:"break"`
}

// Addressing returns the local network part of the TSIs.
func (c *Config) Addressing() tetra.Addressing {
	return tetra.Addressing{MCC: c.MCC, MNC: c.MNC}
}

// OwnTSI returns the TSI of the attached radio.
func (c *Config) OwnTSI() string {
	return c.Addressing().TSI(c.ISSI)
}

// Icon returns the icon for unknown users.
func (c *Config) Icon() directory.Icon {
	icon, err := directory.ParseIcon(c.DefaultIcon)
	if err != nil {
		return directory.DefaultIcon
	}
	return icon
}

// Broadcasts reports if info messages to other users are enabled for the given category.
func (c *Config) Broadcasts(category string) bool {
	return slices.Contains(c.Broadcast, category)
}

// LogLevel maps the debug verbosity to a log level.
func (c *Config) LogLevel() logrus.Level {
	switch {
	case c.Debug <= 0:
		return logrus.ErrorLevel
	case c.Debug == 1:
		return logrus.WarnLevel
	case c.Debug == 2:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// Init returns the complete list of init commands, including the configured operating mode and talkgroup.
func (c *Config) Init() []string {
	result := slices.Clone(c.InitCommands)
	if c.OperatingMode != "" {
		if mode, err := ctrl.AIModeByName(c.OperatingMode); err == nil {
			result = append(result, ctrl.SetOperatingMode(mode))
		}
	}
	if c.Talkgroup != "" {
		result = append(result, ctrl.SetTalkgroup(c.Talkgroup))
	}
	return result
}

func (c *Config) setDefaults() {
	if c.GSSI == "" {
		c.GSSI = DefaultGSSI
	}
	if c.BaudRate == 0 {
		c.BaudRate = serial.DefaultBaudRate
	}
	if c.InfoSDS == "" {
		c.InfoSDS = WelcomeMessagePrefix + c.Callsign
	}
	if c.DefaultIcon == "" {
		c.DefaultIcon = directory.DefaultIcon.String()
	}
	for i := range c.Users {
		if c.Users[i].Icon == "" {
			c.Users[i].Icon = c.DefaultIcon
		}
	}
	if c.ProximityWarning == 0 {
		c.ProximityWarning = DefaultProximityWarning
	}
	if c.TimeBetweenSDS == 0 {
		c.TimeBetweenSDS = DefaultTimeBetweenSDS
	}
	if c.MaxTextLength == 0 {
		c.MaxTextLength = DefaultMaxTextLength
	}
	if c.Timers.Activity == 0 {
		c.Timers.Activity = DefaultActivityTimeout
	}
	if c.Timers.Command == 0 {
		c.Timers.Command = DefaultCommandTimeout
	}
	if c.Timers.Break == 0 {
		c.Timers.Break = DefaultBreakTimeout
	}
}

var digits = regexp.MustCompile(`^[0-9]+$`)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate fills in the defaults and checks the configuration. All problems are reported at once.
// Welcome messages that are too long are cut, which is only a warning.
func (c *Config) Validate(log logrus.FieldLogger) error {
	c.setDefaults()

	var errs []error
	if c.MCC == 0 {
		errs = append(errs, invalid("MCC is missing"))
	} else if c.MCC > MaxMCC {
		errs = append(errs, invalid("country code (MCC) must be %d or less, got %d", MaxMCC, c.MCC))
	}
	if c.MNC == 0 {
		errs = append(errs, invalid("MNC is missing"))
	} else if c.MNC > MaxMNC {
		errs = append(errs, invalid("network code (MNC) must be %d or less, got %d", MaxMNC, c.MNC))
	}
	if !digits.MatchString(c.ISSI) {
		errs = append(errs, invalid("ISSI %q must be a number", c.ISSI))
	}
	if !digits.MatchString(c.GSSI) {
		errs = append(errs, invalid("GSSI %q must be a number", c.GSSI))
	}
	if _, err := directory.ParseIcon(c.DefaultIcon); err != nil {
		errs = append(errs, invalid("default icon: %v", err))
	}
	if c.OperatingMode != "" {
		if _, err := ctrl.AIModeByName(c.OperatingMode); err != nil {
			errs = append(errs, invalid("%v", err))
		}
	}

	for _, u := range c.Users {
		if len(u.TSI) != 17 || !digits.MatchString(u.TSI) {
			errs = append(errs, invalid("TSI %q of user %s must have 17 digits (MCC[4] MNC[5] ISSI[8])", u.TSI, u.Call))
		}
		if _, err := directory.ParseIcon(u.Icon); err != nil {
			errs = append(errs, invalid("icon of user %s: %v", u.Call, err))
		}
	}

	for reason, message := range c.WelcomeMessages {
		if len([]rune(message)) > MaxWelcomeMessageLen {
			log.Warnf("welcome message for reason %d is longer than %d characters, cutting it", reason, MaxWelcomeMessageLen)
			c.WelcomeMessages[reason] = string([]rune(message)[:MaxWelcomeMessageLen])
		}
	}
	for state := range c.StateCommands {
		if state < MinUserDefinedState {
			errs = append(errs, invalid("state %d in sds_to_command must be between %d and 65535", state, MinUserDefinedState))
		}
	}
	for state := range c.StateTexts {
		if state < MinUserDefinedState {
			errs = append(errs, invalid("state %d in tetra_status must be between %d and 65535", state, MinUserDefinedState))
		}
	}
	for _, category := range c.Broadcast {
		switch category {
		case BroadcastDMOOn, BroadcastDMOOff, BroadcastProximity:
		default:
			errs = append(errs, invalid("unknown broadcast category %q", category))
		}
	}

	if c.RegistrationPattern != "" {
		if _, err := regexp.Compile(c.RegistrationPattern); err != nil {
			errs = append(errs, invalid("registration pattern: %v", err))
		}
	}
	if c.ProximityWarning < 0 {
		errs = append(errs, invalid("proximity warning must not be negative"))
	}
	if c.TimeBetweenSDS < 0 || c.MaxTextLength < 0 {
		errs = append(errs, invalid("time between SDS and max text length must not be negative"))
	}
	if c.Timers.Activity < 0 || c.Timers.Command < 0 || c.Timers.Break < 0 {
		errs = append(errs, invalid("timers must be positive"))
	}

	return errors.Join(errs...)
}

// state parses a state code as used in the configuration.
func state(s string) (uint16, error) {
	value, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, invalid("state %q is not a number", s)
	}
	if value < MinUserDefinedState || value > 0xFFFF {
		return 0, invalid("state %d must be between %d and 65535", value, MinUserDefinedState)
	}
	return uint16(value), nil
}
