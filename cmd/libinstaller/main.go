// Command libinstaller is built with -buildmode=c-shared and exposes the
// graphics quirks and the upgrade invoker to the installer frontend through
// the installer_* C functions declared in installer.h.
package main

func main() {}
