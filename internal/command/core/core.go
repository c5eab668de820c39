// Package core holds the commands that are not about music: help and ping.
package core

import "github.com/JeudiD/Ningyo/internal/config"

type base struct{}

func (base) Group() string            { return "core" }
func (base) UserPermissions() []int64 { return nil }

type maintenance struct{ base }

func (maintenance) Category() string { return config.CategoryMaintenance }

type information struct{ base }

func (information) Category() string { return config.CategoryInformation }
