// SPDX-License-Identifier: MPL-2.0

// Package modregistry holds every module of a run by unique name, checks
// the registry's structural rules, rejects dependency cycles and orders
// modules for emission.
//
// Structural problems (duplicate names, dangling dependencies, descriptor
// file names that do not match the module) are collected exhaustively and
// reported together as a [ValidationError]. A cycle is reported as soon as
// one is found, with the offending walk.
package modregistry
