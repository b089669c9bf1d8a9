package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"Mansoor88-6/timekeeper/internal/models"
	"Mansoor88-6/timekeeper/internal/repository"
)

func tagAddAction(c *cli.Context, rt *runtime) error {
	name := strings.TrimSpace(c.Args().First())
	if name == "" {
		return fmt.Errorf("%w: NAME", errMissingArg)
	}

	tag, err := repository.FindTag(c.Context, rt.storage, name)
	switch {
	case errors.Is(err, repository.ErrTagNotFound):
		tag = models.NewTag(name, c.String("color"), c.String("icon"), c.Int("order"), time.Now())
	case err != nil:
		return err
	default:
		if c.IsSet("color") {
			tag.Color = c.String("color")
		}
		if c.IsSet("icon") {
			tag.Icon = c.String("icon")
		}
		if c.IsSet("order") {
			tag.DisplayOrder = c.Int("order")
		}
	}

	if err := rt.ctrl.SaveTag(c.Context, tag); err != nil {
		return err
	}

	pterm.Success.Printfln("Saved tag %s", tag.Name)
	return nil
}

func tagListAction(c *cli.Context, rt *runtime) error {
	tags, err := rt.storage.FetchTags(c.Context)
	if err != nil {
		return err
	}

	if len(tags) == 0 {
		pterm.Info.Println("No tags yet. Create one with 'timekeeper tag add NAME'")
		return nil
	}

	data := [][]string{{"#", "Name", "Color", "Icon", "Order", "ID"}}
	for i, t := range tags {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			t.Name,
			t.Color,
			t.Icon,
			strconv.Itoa(t.DisplayOrder),
			t.ID.String(),
		})
	}

	printTable(data)
	return nil
}

func tagRemoveAction(c *cli.Context, rt *runtime) error {
	tag, err := repository.FindTag(c.Context, rt.storage, c.Args().First())
	if err != nil {
		return err
	}

	if err := rt.ctrl.DeleteTag(c.Context, tag.ID); err != nil {
		return err
	}

	pterm.Success.Printfln("Deleted tag %s", tag.Name)
	return nil
}
