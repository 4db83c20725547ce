// Package models defines the core domain models for esusu.
//
// # Models
//
//   - Group: a fixed-size rotating-savings circle with its members, settings and
//     payout schedule
//   - Member: one participant of a group, identified by wallet address
//   - PayoutEntry: one round of the payout schedule
//   - Contribution: one admitted payment credited to a (group, round, member)
//
// # Design Principles
//
// 1. **Money is decimal**: amounts use shopspring/decimal, never float64
// 2. **Schedule is an arena**: PayoutSchedule[r-1] is the entry for round r
// 3. **Avoid circular references**: relationships are ID strings, not pointers
// 4. **Versioned**: Group.Version backs optimistic concurrency in storage
package models
