package console

import (
	"strconv"

	"ecgscope/cardio/settings"
	"ecgscope/cardio/sim"
)

func builtins() []command {
	return []command{
		{Name: "help", Aliases: []string{"?"}, Usage: "help", Desc: "list commands", Run: cmdHelp},
		{Name: "status", Usage: "status", Desc: "show calibration and lead state", Run: cmdStatus},
		{Name: "lead", Usage: "lead on|off|auto", Desc: "override the lead-off input", Run: cmdLead},
		{Name: "gain", Usage: "gain <factor>", Desc: "set trace gain", Run: floatSetter(func(c *settings.Calibration, v float32) { c.Gain = v })},
		{Name: "baseline", Usage: "baseline <value>", Desc: "set baseline value", Run: floatSetter(func(c *settings.Calibration, v float32) { c.Baseline = v })},
		{Name: "range", Usage: "range <value>", Desc: "set full-scale value range", Run: floatSetter(func(c *settings.Calibration, v float32) { c.ValueRange = v })},
		{Name: "grid", Usage: "grid <px>", Desc: "set grid spacing", Run: cmdGrid},
		{Name: "hr", Aliases: []string{"bpm"}, Usage: "hr <bpm>", Desc: "set simulated heart rate", Run: cmdRate},
		{Name: "reset", Aliases: []string{"clear"}, Usage: "reset", Desc: "clear the trace", Run: cmdReset},
		{Name: "save", Usage: "save", Desc: "store calibration on flash", Run: cmdSave},
		{Name: "load", Usage: "load", Desc: "restore calibration from flash", Run: cmdLoad},
	}
}

func cmdHelp(c *Console, args []string) error {
	for _, name := range c.reg.names() {
		cmd := c.reg.primary[name]
		c.printf("%-18s %s\n", cmd.Usage, cmd.Desc)
	}
	return nil
}

func cmdStatus(c *Console, args []string) error {
	m := c.env.Monitor
	lead := "on"
	if m.LeadOff() {
		lead = "off"
	}
	mode := "n/a"
	if c.env.Leads != nil {
		mode = c.env.Leads.Mode().String()
	}
	p := m.WaveParams()
	c.printf("lead: %s (mode %s)\n", lead, mode)
	c.printf("samples: %d\n", m.Samples())
	c.printf("gain: %g baseline: %g range: %g grid: %d\n", p.Gain, p.Baseline, p.ValueRange, m.GridSpacing())
	if c.env.Rate != nil {
		c.printf("hr: %d\n", c.env.Rate.BPM())
	}
	return nil
}

func cmdLead(c *Console, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	if c.env.Leads == nil {
		return ErrUnavailable
	}
	mode, err := sim.ParseLeadMode(args[0])
	if err != nil {
		return ErrUsage
	}
	c.env.Leads.SetMode(mode)
	c.printf("lead: %s\n", mode)
	return nil
}

func floatSetter(set func(*settings.Calibration, float32)) cmdFunc {
	return func(c *Console, args []string) error {
		if len(args) != 1 {
			return ErrUsage
		}
		v, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return ErrUsage
		}
		next := c.cal
		set(&next, float32(v))
		if err := c.apply(next); err != nil {
			return err
		}
		c.printf("ok\n")
		return nil
	}
}

func cmdGrid(c *Console, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	v, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil || v == 0 {
		return ErrUsage
	}
	next := c.cal
	next.GridSpacing = uint16(v)
	if err := c.apply(next); err != nil {
		return err
	}
	c.printf("ok\n")
	return nil
}

func cmdRate(c *Console, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	if c.env.Rate == nil {
		return ErrUnavailable
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v < 0 || v > 300 {
		return ErrUsage
	}
	c.env.Rate.SetBPM(v)
	c.printf("hr: %d\n", c.env.Rate.BPM())
	return nil
}

func cmdReset(c *Console, args []string) error {
	return c.env.Monitor.ResetTrace()
}

func cmdSave(c *Console, args []string) error {
	if c.env.Store == nil {
		return ErrUnavailable
	}
	if err := c.env.Store.Save(c.cal); err != nil {
		return err
	}
	c.printf("saved\n")
	return nil
}

func cmdLoad(c *Console, args []string) error {
	if c.env.Store == nil {
		return ErrUnavailable
	}
	cal, err := c.env.Store.Load()
	if err != nil {
		return err
	}
	if err := c.apply(cal); err != nil {
		return err
	}
	c.printf("loaded\n")
	return nil
}
