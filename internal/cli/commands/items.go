package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"SecondChance/internal/cli/api"
	"SecondChance/internal/config"
	"SecondChance/internal/model"
)

// newClient создаёт HTTP-клиента каталога по общему конфигу.
var newClient = func(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.ItemsURL())
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseFields разбирает аргументы вида key=value.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, ErrUsage
		}
		fields[k] = v
	}
	return fields, nil
}

// jsonFields приводит числовые поля и comments к типам, которые ждёт JSON API.
func jsonFields(fields map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case "age_days":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("age_days must be a number")
			}
			out[k] = f
		case "date_added":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("date_added must be an integer")
			}
			out[k] = n
		case "comments":
			var cs []model.Comment
			if err := json.Unmarshal([]byte(v), &cs); err != nil {
				return nil, fmt.Errorf("comments must be a JSON array")
			}
			out[k] = cs
		default:
			out[k] = v
		}
	}
	return out, nil
}

func printItem(it *model.Item) {
	fmt.Fprintf(Out, "id:          %d\n", it.ID)
	if it.InternalID != "" {
		fmt.Fprintf(Out, "_id:         %s\n", it.InternalID)
	}
	fmt.Fprintf(Out, "name:        %s\n", it.Name)
	fmt.Fprintf(Out, "category:    %s\n", it.Category)
	fmt.Fprintf(Out, "condition:   %s\n", it.Condition)
	fmt.Fprintf(Out, "posted_by:   %s\n", it.PostedBy)
	fmt.Fprintf(Out, "zipcode:     %s\n", it.Zipcode)
	if it.AgeDays != nil {
		fmt.Fprintf(Out, "age_days:    %g\n", *it.AgeDays)
	}
	if it.AgeYears != "" {
		fmt.Fprintf(Out, "age_years:   %s\n", it.AgeYears)
	}
	fmt.Fprintf(Out, "description: %s\n", it.Description)
	if it.Image != "" {
		fmt.Fprintf(Out, "image:       %s (%s)\n", it.Image, it.ImageName)
	}
	for _, c := range it.Comments {
		fmt.Fprintf(Out, "comment:     %s: %s\n", c.Author, c.Comment)
	}
	fmt.Fprintf(Out, "created:     %s\n", it.CreatedAt.Format("2006-01-02 15:04:05"))
	if it.UpdatedAt != nil {
		fmt.Fprintf(Out, "updated:     %s\n", it.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

type listCmd struct{}

func (listCmd) Name() string        { return "list" }
func (listCmd) Description() string { return "Показать все объявления" }
func (listCmd) Usage() string       { return "list" }

func (listCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	list, err := newClient(cfg).List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(Out, "Нет объявлений")
		return nil
	}
	for _, it := range list {
		fmt.Fprintf(Out, "- %d  name=%s  category=%s  condition=%s\n", it.ID, it.Name, it.Category, it.Condition)
	}
	fmt.Fprintf(Out, "Всего: %d\n", len(list))
	return nil
}

type getCmd struct{}

func (getCmd) Name() string        { return "get" }
func (getCmd) Description() string { return "Показать объявление по id" }
func (getCmd) Usage() string       { return "get <id>" }

func (getCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	it, err := newClient(cfg).Get(ctx, id)
	if err != nil {
		return err
	}
	printItem(it)
	return nil
}

type createCmd struct{}

func (createCmd) Name() string        { return "create" }
func (createCmd) Description() string { return "Создать объявление (опционально с изображением)" }
func (createCmd) Usage() string       { return "create [-image <path>] key=value..." }

func (createCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	image := ""
	if len(args) > 0 && (args[0] == "-image" || args[0] == "--image") {
		if len(args) < 2 {
			return ErrUsage
		}
		image = args[1]
		args = args[2:]
	}
	fields, err := parseFields(args)
	if err != nil {
		return err
	}
	if len(fields) == 0 && image == "" {
		return ErrUsage
	}
	it, err := newClient(cfg).Create(ctx, fields, image)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Создано объявление id=%d\n", it.ID)
	return nil
}

type updateCmd struct{}

func (updateCmd) Name() string        { return "update" }
func (updateCmd) Description() string { return "Изменить поля объявления" }
func (updateCmd) Usage() string       { return "update <id> key=value..." }

func (updateCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	fields, err := parseFields(args[1:])
	if err != nil {
		return err
	}
	body, err := jsonFields(fields)
	if err != nil {
		return err
	}
	msg, err := newClient(cfg).Update(ctx, id, body)
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, msg)
	return nil
}

type deleteCmd struct{}

func (deleteCmd) Name() string        { return "delete" }
func (deleteCmd) Description() string { return "Удалить объявление" }
func (deleteCmd) Usage() string       { return "delete <id>" }

func (deleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	msg, err := newClient(cfg).Delete(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, msg)
	return nil
}

func init() {
	RegisterCmd(listCmd{})
	RegisterCmd(getCmd{})
	RegisterCmd(createCmd{})
	RegisterCmd(updateCmd{})
	RegisterCmd(deleteCmd{})
}
