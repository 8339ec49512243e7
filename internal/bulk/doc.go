// Package bulk holds the leaf actions of a load: the Loader, which
// truncates a table and streams a CSV file into it with COPY over a
// worker's own connection, and the ScriptEmitter, which writes the
// equivalent statements instead of running them.
package bulk
