// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/tiroterm/pkg/session"
	"github.com/Thermoquad/tiroterm/pkg/tiro"
	tea "github.com/charmbracelet/bubbletea"
)

var errUsage = errors.New("usage")

const consoleHelp = `play <n>           play segment n          vol <n>        set volume 0-15
+ / -              step the last play/vol   hex <bytes>    send raw hex
chain [n...]       send the chain (loading n... first if given)
set <slot> <n>     put n in slot 1-40       clear [slot]   clear one slot or all
save [name]        save chain as new name   update <name>  overwrite saved chain
load <name>        load saved chain         list           list saved chains
mode <8|16>        protocol mode            ports          list ports
connect [port]     open the port            disconnect     close the port
stats [reset]      show or zero counters    quit`

// runLine executes one console command line
func (m *consoleModel) runLine(line string) tea.Cmd {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch verb {
	case "play", "p":
		err = m.cmdPlay(args)
	case "vol", "volume", "v":
		err = m.cmdVolume(args)
	case "+":
		err = m.cmdStep(1)
	case "-":
		err = m.cmdStep(-1)
	case "hex", "x":
		err = m.cmdHex(args)
	case "chain", "c":
		err = m.cmdChain(args)
	case "set":
		err = m.cmdSet(args)
	case "clear":
		err = m.cmdClear(args)
	case "save":
		err = m.cmdSave(args)
	case "update":
		err = m.cmdUpdate(args)
	case "load":
		err = m.cmdLoad(args)
	case "list", "ls":
		m.cmdList()
	case "mode":
		err = m.cmdMode(args)
	case "ports":
		err = m.cmdPorts()
	case "connect":
		err = m.cmdConnect(args)
	case "disconnect":
		err = m.cmdDisconnect()
	case "stats":
		err = m.cmdStats(args)
	case "help", "?":
		for _, l := range strings.Split(consoleHelp, "\n") {
			m.addLogEntry(logInfo, l)
		}
	case "quit", "exit", "q":
		m.quitting = true
		return tea.Quit
	default:
		err = fmt.Errorf("unknown command %q (type help)", verb)
	}

	if err != nil {
		m.addError(err)
	}
	return nil
}

func (m *consoleModel) cmdStats(args []string) error {
	stats := m.session.Statistics()
	switch {
	case len(args) == 0:
		for _, l := range strings.Split(strings.TrimRight(stats.String(), "\n"), "\n") {
			m.addLogEntry(logInfo, l)
		}
		return nil
	case len(args) == 1 && strings.EqualFold(args[0], "reset"):
		stats.Reset()
		m.addInfo("statistics reset")
		return nil
	default:
		return fmt.Errorf("%w: stats [reset]", errUsage)
	}
}

// logSent records a successful write or returns the failure
func (m *consoleModel) logSent(sent session.Sent, err error) error {
	if err != nil {
		return err
	}
	m.addLogEntry(logSent, sent.String())
	return nil
}

func oneInt(args []string, what string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s", errUsage, what)
	}
	return tiro.ParseValue(args[0])
}

func (m *consoleModel) cmdPlay(args []string) error {
	value, err := oneInt(args, "play <n>")
	if err != nil {
		return err
	}
	return m.play(value)
}

func (m *consoleModel) play(value int) error {
	if err := m.logSent(m.session.Play(value, m.mode)); err != nil {
		return err
	}
	m.last, m.lastValue = lastPlay, value
	return nil
}

func (m *consoleModel) cmdVolume(args []string) error {
	level, err := oneInt(args, "vol <0-15>")
	if err != nil {
		return err
	}
	return m.setVolume(level)
}

func (m *consoleModel) setVolume(level int) error {
	if err := m.logSent(m.session.Volume(level, m.mode)); err != nil {
		return err
	}
	m.last, m.volume, m.volumeSet = lastVolume, level, true
	return nil
}

func (m *consoleModel) cmdStep(delta int) error {
	switch m.last {
	case lastPlay:
		return m.play(tiro.StepValue(m.lastValue, delta))
	case lastVolume:
		return m.setVolume(tiro.StepVolume(m.volume, delta))
	default:
		return errors.New("nothing to step yet, send play or vol first")
	}
}

func (m *consoleModel) cmdHex(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: hex <bytes>", errUsage)
	}
	return m.logSent(m.session.Raw(strings.Join(args, " ")))
}

func (m *consoleModel) cmdChain(args []string) error {
	if len(args) > 0 {
		if err := m.chain.LoadTokens(args); err != nil {
			return err
		}
		if len(args) > tiro.ChainCapacity {
			m.addInfo("only the first %d values fit in the chain", tiro.ChainCapacity)
		}
	}
	return m.logSent(m.session.Chain(m.chain, m.mode))
}

func (m *consoleModel) cmdSet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: set <slot> <n>", errUsage)
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: slot %q is not a number", tiro.ErrParse, args[0])
	}
	value, err := tiro.ParseValue(args[1])
	if err != nil {
		return err
	}
	return m.chain.SetSlot(index, value)
}

func (m *consoleModel) cmdClear(args []string) error {
	switch len(args) {
	case 0:
		m.chain.ClearAll()
		m.addInfo("chain cleared")
		return nil
	case 1:
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: slot %q is not a number", tiro.ErrParse, args[0])
		}
		return m.chain.ClearSlot(index)
	default:
		return fmt.Errorf("%w: clear [slot]", errUsage)
	}
}

func (m *consoleModel) cmdSave(args []string) error {
	if m.chain.Len() == 0 {
		return errors.New("chain is empty")
	}
	name := strings.Join(args, " ")
	if name == "" {
		name = m.store.NextName()
	}
	if err := m.store.SaveNew(name, m.chain.Tokens()); err != nil {
		return err
	}
	m.addInfo("saved %q: %s", name, m.chain.Command())
	return nil
}

func (m *consoleModel) cmdUpdate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: update <name>", errUsage)
	}
	if m.chain.Len() == 0 {
		return errors.New("chain is empty")
	}
	name := strings.Join(args, " ")
	if err := m.store.UpdateExisting(name, m.chain.Tokens()); err != nil {
		return err
	}
	m.addInfo("updated %q: %s", name, m.chain.Command())
	return nil
}

func (m *consoleModel) cmdLoad(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: load <name>", errUsage)
	}
	rec, err := m.store.Get(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := m.chain.LoadTokens(rec.Tokens()); err != nil {
		return fmt.Errorf("stored chain %q: %w", rec.Name, err)
	}
	m.addInfo("loaded %q: %s", rec.Name, m.chain.Command())
	return nil
}

func (m *consoleModel) cmdList() {
	names := m.store.Names()
	if len(names) == 0 {
		m.addInfo("no saved chains")
		return
	}
	for _, rec := range m.store.Records() {
		m.addLogEntry(logInfo, fmt.Sprintf("  %-20s %s  %s", rec.Name, rec.Timestamp, rec.Command))
	}
}

func (m *consoleModel) cmdMode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: mode <8|16>", errUsage)
	}
	mode, err := tiro.ParseMode(args[0])
	if err != nil {
		return err
	}
	m.mode = mode
	m.addInfo("protocol mode %s", mode)
	return nil
}

func (m *consoleModel) cmdPorts() error {
	ports, err := m.session.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		m.addInfo("no ports found")
		return nil
	}
	for _, p := range ports {
		m.addLogEntry(logInfo, "  "+p.Name)
	}
	return nil
}

func (m *consoleModel) cmdConnect(args []string) error {
	port := m.port
	if len(args) > 0 {
		port = strings.Join(args, " ")
	}
	if port == "" {
		return fmt.Errorf("%w: connect <port>", errUsage)
	}
	if err := m.session.Open(port, m.line); err != nil {
		return err
	}
	m.port = port
	m.addInfo("connected: %s", connectionInfo(m.session))
	return nil
}

func (m *consoleModel) cmdDisconnect() error {
	if m.session.State() == session.StateClosed {
		return session.ErrNotConnected
	}
	port := m.session.Port()
	if err := m.session.Close(); err != nil {
		return err
	}
	m.addInfo("disconnected: %s", port)
	return nil
}
