package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

const (
	MenuSourceFile = "file"
	MenuSourceDemo = "demo"
)

var demoMenu = []models.MenuItem{
	{ID: "espresso", Name: "Espresso", Description: "Double shot of house espresso", Price: 3.50, Category: "coffee"},
	{ID: "latte", Name: "Latte", Description: "Espresso with steamed milk", Price: 5.00, Category: "coffee"},
	{ID: "chocolate-croissant", Name: "Chocolate Croissant", Description: "Butter croissant with dark chocolate", Price: 3.80, Category: "bakery"},
	{ID: "iced-lemon-tea", Name: "Iced Lemon Tea", Description: "Black tea, lemon, ice", Price: 4.00, Category: "drinks"},
}

// menuFile accepts either a bare list or an "items:" document.
type menuFile struct {
	Items []models.MenuItem `yaml:"items"`
}

// MenuService reads the menu from a YAML file on every request so edits show
// up without a restart. A missing, empty or broken file serves the demo menu.
type MenuService struct {
	path string
}

func NewMenuService(path string) *MenuService {
	return &MenuService{path: path}
}

func DemoMenu() []models.MenuItem {
	out := make([]models.MenuItem, len(demoMenu))
	copy(out, demoMenu)
	return out
}

func (s *MenuService) load() ([]models.MenuItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var doc menuFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var list []models.MenuItem
		if listErr := yaml.Unmarshal(data, &list); listErr != nil {
			return nil, fmt.Errorf("parse %s: %w", s.path, err)
		}
		doc.Items = list
	}

	items := doc.Items[:0]
	for _, it := range doc.Items {
		if it.ID == "" || it.Name == "" || it.Price < 0 {
			utils.InfoLogger.WithField("item", it.ID).Warn("Skipping invalid menu item")
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// Items returns the menu and where it came from.
func (s *MenuService) Items() ([]models.MenuItem, string) {
	if s.path == "" {
		return DemoMenu(), MenuSourceDemo
	}

	items, err := s.load()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		utils.InfoLogger.WithField("path", s.path).Debug("Menu file not found, serving demo menu")
	case err != nil:
		utils.ErrorLogger.WithField("path", s.path).Warnf("Failed to load menu, serving demo menu: %v", err)
	case len(items) == 0:
		utils.InfoLogger.WithField("path", s.path).Warn("Menu file is empty, serving demo menu")
	default:
		return items, MenuSourceFile
	}
	return DemoMenu(), MenuSourceDemo
}
