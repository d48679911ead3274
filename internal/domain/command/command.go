// Package command maps spoken phrases onto attendance commands and runs
// them behind a confidence gate.
package command

import (
	"fmt"
	"strings"
)

// VoiceCommand 语音指令，声明顺序即平局时的优先顺序
type VoiceCommand int

const (
	CheckIn VoiceCommand = iota
	CheckOut
	StartBreak
	EndBreak
	RequestLeave
	ViewSchedule
	GetStatus
)

// Category groups commands for the supported-commands catalogue.
type Category string

const (
	CategoryAttendance Category = "Attendance"
	CategoryBreak      Category = "Break"
	CategoryLeave      Category = "Leave"
	CategorySchedule   Category = "Schedule"
	CategoryStatus     Category = "Status"
)

type definition struct {
	command     VoiceCommand
	name        string
	display     string
	description string
	category    Category
	phrases     []string
}

// 指令表，短语均为小写
var definitions = []definition{
	{CheckIn, "CheckIn", "Check In", "Record your arrival at work", CategoryAttendance,
		[]string{"check in", "clock in", "i'm here", "start work"}},
	{CheckOut, "CheckOut", "Check Out", "Record your departure from work", CategoryAttendance,
		[]string{"check out", "clock out", "leaving", "end work"}},
	{StartBreak, "StartBreak", "Start Break", "Begin a break period", CategoryBreak,
		[]string{"start break", "going on break", "break time"}},
	{EndBreak, "EndBreak", "End Break", "End a break period", CategoryBreak,
		[]string{"end break", "back from break", "resume work"}},
	{RequestLeave, "RequestLeave", "Request Leave", "Submit a leave request", CategoryLeave,
		[]string{"request leave", "apply for leave", "need time off"}},
	{ViewSchedule, "ViewSchedule", "View Schedule", "Check your work schedule", CategorySchedule,
		[]string{"show schedule", "my schedule", "what's my shift"}},
	{GetStatus, "GetStatus", "Get Status", "Check your current attendance status", CategoryStatus,
		[]string{"my status", "attendance status", "am i checked in"}},
}

func (c VoiceCommand) valid() bool {
	return c >= CheckIn && c <= GetStatus
}

func (c VoiceCommand) String() string {
	if !c.valid() {
		return fmt.Sprintf("VoiceCommand(%d)", int(c))
	}
	return definitions[c].name
}

// MarshalText encodes the command by name so JSON carries "CheckIn" rather than 0.
func (c VoiceCommand) MarshalText() ([]byte, error) {
	if !c.valid() {
		return nil, fmt.Errorf("unknown voice command %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *VoiceCommand) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse accepts the command name in any case, with or without spaces.
func Parse(s string) (VoiceCommand, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, d := range definitions {
		if strings.ToLower(d.name) == key {
			return d.command, nil
		}
	}
	return 0, fmt.Errorf("unknown voice command %q", s)
}

// Info describes one supported command.
type Info struct {
	Command     VoiceCommand `json:"command"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    Category     `json:"category"`
	Examples    []string     `json:"examples"`
}

// SupportedCommands lists every command in declaration order.
func SupportedCommands() []Info {
	out := make([]Info, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, Info{
			Command:     d.command,
			Name:        d.display,
			Description: d.description,
			Category:    d.category,
			Examples:    append([]string(nil), d.phrases...),
		})
	}
	return out
}
