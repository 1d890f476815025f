// Package autospy implements spectate rotation: a player who asks for it is put
// in spectator mode and periodically moved to the next eligible online player,
// cycling through the server population until they stop, disconnect or leave
// spectator mode themselves.
//
// A Manager owns one session per requester. Every session has its own
// repeating Task on a Scheduler and its own Cursor over a snapshot of the
// online players. The Manager reaches the server only through the Population,
// Permissions, Views and Notifier interfaces.
package autospy
