package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// DefaultSection is the INI section that holds the TetraLogic configuration.
const DefaultSection = "TetraLogic"

// Load reads the configuration from the given file. Files with the extension .yaml or .yml are read as YAML,
// all others as svxlink style INI file with the given section.
func Load(filename string, section string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read configuration: %w", err)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseINI(data, section)
	}
}

// ParseYAML parses the configuration from YAML. Unknown fields are rejected.
func ParseYAML(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	result := new(Config)
	if err := decoder.Decode(result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return result, nil
}

// ParseINI parses the configuration from the given section of an svxlink style INI file. The users, welcome
// messages and state tables are read from the sections referenced in the TetraLogic section.
func ParseINI(data []byte, section string) (*Config, error) {
	if section == "" {
		section = DefaultSection
	}
	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	logic, err := file.GetSection(section)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	result := new(Config)
	var errs []error
	uintKey := func(name string) uint {
		if !logic.HasKey(name) {
			return 0
		}
		value, err := logic.Key(name).Uint()
		if err != nil {
			errs = append(errs, invalid("%s/%s is not a number: %s", section, name, logic.Key(name).String()))
		}
		return value
	}
	floatKey := func(name string) float64 {
		if !logic.HasKey(name) {
			return 0
		}
		value, err := logic.Key(name).Float64()
		if err != nil {
			errs = append(errs, invalid("%s/%s is not a number: %s", section, name, logic.Key(name).String()))
		}
		return value
	}

	result.Callsign = logic.Key("CALLSIGN").String()
	result.MCC = uintKey("MCC")
	result.MNC = uintKey("MNC")
	result.ISSI = logic.Key("ISSI").String()
	result.GSSI = logic.Key("GSSI").String()
	result.Port = logic.Key("PORT").String()
	result.BaudRate = uintKey("BAUD")
	if logic.HasKey("INIT_PEI") {
		result.InitCommands = logic.Key("INIT_PEI").Strings(";")
	}
	result.EndCommand = logic.Key("END_CMD").String()
	result.OperatingMode = logic.Key("OPERATING_MODE").String()
	result.Talkgroup = logic.Key("TALKGROUP").String()
	result.APRSPath = logic.Key("APRSPATH").String()
	result.InfoSDS = logic.Key("INFO_SDS").String()
	result.DefaultIcon = logic.Key("DEFAULT_APRS_ICON").String()
	result.SDSPTY = logic.Key("SDS_PTY").String()
	if logic.HasKey("SDS_TO_OTHERS_ON_ACTIVITY") {
		result.Broadcast = logic.Key("SDS_TO_OTHERS_ON_ACTIVITY").Strings(",")
	}
	result.ProximityWarning = floatKey("PROXIMITY_WARNING")
	result.TimeBetweenSDS = time.Duration(uintKey("TIME_BETWEEN_SDS")) * time.Second
	result.Latitude = floatKey("LATITUDE")
	result.Longitude = floatKey("LONGITUDE")
	result.RegistrationPattern = logic.Key("REGISTRATION_PATTERN").String()
	result.MaxTextLength = int(uintKey("MAX_TEXT_LENGTH"))
	result.Debug = int(uintKey("DEBUG"))
	result.Trace = logic.Key("TRACE").String()

	if name := logic.Key("TETRA_USERS").String(); name != "" {
		for _, key := range file.Section(name).Keys() {
			fields := key.Strings(",")
			user := User{TSI: key.Name()}
			for i, field := range fields {
				switch i {
				case 0:
					user.Call = field
				case 1:
					user.Name = field
				case 2:
					user.Icon = field
				case 3:
					user.Comment = field
				}
			}
			result.Users = append(result.Users, user)
		}
	}

	if name := logic.Key("SDS_ON_USERACTIVITY").String(); name != "" {
		result.WelcomeMessages = make(map[int]string)
		for _, key := range file.Section(name).Keys() {
			reason, err := strconv.Atoi(key.Name())
			if err != nil {
				errs = append(errs, invalid("%s/%s: reason for sending is not a number", name, key.Name()))
				continue
			}
			result.WelcomeMessages[reason] = key.String()
		}
	}

	stateTable := func(name string) map[uint16]string {
		table := make(map[uint16]string)
		for _, key := range file.Section(name).Keys() {
			code, err := state(key.Name())
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				continue
			}
			table[code] = key.String()
		}
		return table
	}
	if name := logic.Key("SDS_TO_COMMAND").String(); name != "" {
		result.StateCommands = stateTable(name)
	}
	if name := logic.Key("TETRA_STATUS").String(); name != "" {
		result.StateTexts = stateTable(name)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}
