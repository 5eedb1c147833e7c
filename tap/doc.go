// Package tap renders nested test results as TAP version 13 text.
//
// A report tree starts with [Begin], which writes the version line and, when
// planned, the count line. Subsections created with [Report.Begin] write a
// bracketed header to their parent on their first line of output and indent
// their own lines by four spaces. Subsections begun with [Concurrent]
// ordering prefix each line with "  <description>|  " instead, so that
// interleaved output stays attributable.
//
// Every node ends exactly once and only after all of its subsections have
// ended. Ending a subsection writes "ok - <description>" or
// "not ok - <description>" to the parent. A bail-out terminates the whole
// tree; later calls on any node of it return [ErrBailedOut].
//
// Output goes to a [Sink], which receives one line at a time.
package tap
