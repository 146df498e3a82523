// Package registry owns entity lifetime. Every live entity is addressed by a
// global ID built from its category and a category-local byte.
package registry

import (
	"fmt"
	"math"
)

// Category partitions the id keyspace.
type Category uint8

const (
	CategoryUninfectedCell Category = iota
	CategoryCluster
	CategoryVirus
	// CategorySingleton holds one-of-a-kind objects such as the level.
	CategorySingleton

	numCategories = int(CategorySingleton) + 1
)

// CategorySize is the number of local ids in each category.
const CategorySize = 256

func (c Category) String() string {
	switch c {
	case CategoryUninfectedCell:
		return "ucell"
	case CategoryCluster:
		return "cluster"
	case CategoryVirus:
		return "virus"
	case CategorySingleton:
		return "singleton"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

func (c Category) Valid() bool { return int(c) < numCategories }

// Offset is the first global id of the category.
func (c Category) Offset() ID { return ID(c) * CategorySize }

// Singleton local ids.
const (
	SingletonCamera uint8 = iota
	SingletonCursor
	SingletonHUD
	SingletonLevel
)

// ID is a global registry key.
type ID uint32

// None is an ID that never names an entity.
const None ID = math.MaxUint32

// GlobalID maps a category-local id into the shared keyspace.
func GlobalID(c Category, local uint8) ID {
	return c.Offset() + ID(local)
}

// Category reports which partition id falls into.
func (id ID) Category() Category { return Category(id / CategorySize) }

// Local strips the category offset.
func (id ID) Local() uint8 { return uint8(id % CategorySize) }

// LocalID is the exact inverse of GlobalID.
func LocalID(id ID) (Category, uint8) {
	return id.Category(), id.Local()
}

func (id ID) Valid() bool { return id.Category().Valid() }

func (id ID) String() string {
	return fmt.Sprintf("%s/%d", id.Category(), id.Local())
}
