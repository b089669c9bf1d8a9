package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"Mansoor88-6/timekeeper/internal/config"
	"Mansoor88-6/timekeeper/internal/livestatus"
	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/repository"
)

const defaultTagColor = "#4D96FF"

var errMissingArg = errors.New("missing argument")

func startAction(c *cli.Context, rt *runtime) error {
	ref := c.Args().First()
	if ref == "" {
		return fmt.Errorf("%w: TAG", errMissingArg)
	}

	tag, err := repository.FindTag(c.Context, rt.storage, ref)
	if errors.Is(err, repository.ErrTagNotFound) && c.Bool("create") {
		tags, ferr := rt.storage.FetchTags(c.Context)
		if ferr != nil {
			return ferr
		}

		tag = models.NewTag(ref, defaultTagColor, "", len(tags), time.Now())
		err = rt.ctrl.SaveTag(c.Context, tag)
	}
	if err != nil {
		return err
	}

	rec, err := rt.ctrl.StartTimer(c.Context, tag)
	if rec != nil {
		printTimer("Started", rec)
	}
	return err
}

func pauseAction(c *cli.Context, rt *runtime) error {
	rec, err := rt.ctrl.PauseTimer(c.Context)
	if rec == nil && err == nil {
		pterm.Warning.Println("No running timer to pause")
		return nil
	}
	if rec != nil {
		printTimer("Paused", rec)
	}
	return err
}

func resumeAction(c *cli.Context, rt *runtime) error {
	rec, err := rt.ctrl.ResumeTimer(c.Context)
	if rec == nil && err == nil {
		pterm.Warning.Println("No paused timer to resume")
		return nil
	}
	if rec != nil {
		printTimer("Resumed", rec)
	}
	return err
}

func stopAction(c *cli.Context, rt *runtime) error {
	rec, err := rt.ctrl.StopTimer(c.Context)
	if rec == nil && err == nil {
		pterm.Warning.Println("No active timer to stop")
		return nil
	}
	if rec != nil {
		printTimer("Stopped", rec)
	}
	return err
}

// statusAction reads the status file, so it works while another process
// holds the lock.
func statusAction(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	s, err := livestatus.ReadStatus(cfg.Status.File)
	if err != nil {
		return err
	}

	now := time.Now()
	if s.Active() {
		pterm.Info.Println(s.Title(now))
	} else {
		pterm.Info.Println("No active timer")
	}
	pterm.Printfln("Today: %s", livestatus.FormatClock(s.TodayAt(now)))
	return nil
}

func logAction(c *cli.Context, rt *runtime) error {
	if c.String("tag") == "" || c.String("from") == "" || c.String("to") == "" {
		return fmt.Errorf("%w: --tag, --from and --to are required", errMissingArg)
	}

	tag, err := repository.FindTag(c.Context, rt.storage, c.String("tag"))
	if err != nil {
		return err
	}

	now := time.Now()
	start, err := parseWhen(c.String("from"), now, rt.loc)
	if err != nil {
		return err
	}
	end, err := parseWhen(c.String("to"), now, rt.loc)
	if err != nil {
		return err
	}

	rec, err := rt.ctrl.AddManualEntry(c.Context, tag, start, end)
	if err != nil {
		return err
	}

	printTimer("Logged", rec)
	return nil
}

func removeAction(c *cli.Context, rt *runtime) error {
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid timer id %q: %w", c.Args().First(), err)
	}

	if err := rt.ctrl.DeleteTimer(c.Context, id); err != nil {
		return err
	}

	pterm.Success.Printfln("Deleted %s", id)
	return nil
}
