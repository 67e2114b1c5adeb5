// Command encore is the operator CLI for the encore competition daemon.
package main
