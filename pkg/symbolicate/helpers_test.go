package symbolicate

import (
	"context"
	"sync"
)

const reportHeader = `Incident Identifier: 74d73a9e-32ce-483e-801c-4fa98cf3fd56
CrashReporter Key:   E465B1AA-5E26-40A3-BE03-F061FD65214E
Hardware Model:      iPad7,6
Process:         MyApplication [2460]
Path:            /private/var/containers/Bundle/Application/6DDD326C-75DB-40FD-B3F3-7A45E4EA53E7/MyApplication.app/MyApplication
Identifier:      nz.liambyrne.myapplication
Version:         1.0.0 (10)
Code Type:       arm64
Parent Process:  ??? [1]

Date/Time:       2020-12-09T08:26:57.999Z
Launch Time:     2020-12-09T03:15:06Z
OS Version:      iPhone OS 13.4.1 (17E262)
Report Version:  104

Exception Type:  SIGTRAP
Exception Codes: TRAP_BRKPT at 0x1c3b7e5e0
Crashed Thread:  0

Thread 0 Crashed:`

var frames = []string{
	"0   libswiftCore.dylib                   0x00000001c3b7e5e0 Swift._assertionFailure(_: Swift.StaticString, _: Swift.String, file: Swift.StaticString, line: Swift.UInt, flags: Swift.UInt32) -> Swift.Never + 796",
	"1   MyApplicationDataAccess              0x0000000100ee479c _hidden#1679_ (__hidden#8070_:186)",
	"2   MyApplicationDataAccess              0x0000000100fc7e70 _hidden#20946_ (__hidden#1870_:0)",
	"3   MyApplication                        0x00000001005a2628 _hidden#46492_ (__hidden#57813_:605)",
	"4   MyApplication                        0x000000010041873c _hidden#1521_ (__hidden#1232_:0)",
	"5   libdispatch.dylib                    0x00000001b63989a8 _dispatch_call_block_and_release + 20",
	"6   libdispatch.dylib                    0x00000001b6399524 _dispatch_client_callout + 12",
	"7   libdispatch.dylib                    0x00000001b634b5b4 _dispatch_main_queue_callback_4CF$VARIANT$mp + 900",
	"8   CoreFoundation                       0x00000001b6651748 __CFRUNLOOP_IS_SERVICING_THE_MAIN_DISPATCH_QUEUE__ + 8",
	"9   CoreFoundation                       0x00000001b664c61c __CFRunLoopRun + 1720",
	"10  CoreFoundation                       0x00000001b664bc34 CFRunLoopRunSpecific + 420",
	"11  GraphicsServices                     0x00000001c079538c GSEventRunModal + 156",
	"12  UIKitCore                            0x00000001ba77e22c UIApplicationMain + 1928",
	"13  MyApplication                        0x000000010028a9b8 main (__hidden#1230_:11)",
	"14  libdyld.dylib                        0x00000001b64d3800 start + 0",
}

const binaryImages = `Binary Images:
0x0000000100284000 -        0x0000000100763fff +MyApplication arm64  <219132bbc2d03cc9aabdd0df0ed9ab2d> /private/var/containers/Bundle/Application/6DDD326C-75DB-40FD-B3F3-7A45E4EA53E7/MyApplication.app/MyApplication
0x000000010093c000 -        0x00000001009e3fff +FrameworkA arm64  <548e9f2cfc1a3c82acc9c4461469beec> /private/var/containers/Bundle/Application/6DDD326C-75DB-40FD-B3F3-7A45E4EA53E7/MyApplication.app/Frameworks/FrameworkA.framework/FrameworkA
0x0000000100a3c000 -        0x0000000100ae7fff +FrameworkB arm64  <8bc859e475f9317cbe260edb5b5b84ce> /private/var/containers/Bundle/Application/6DDD326C-75DB-40FD-B3F3-7A45E4EA53E7/MyApplication.app/Frameworks/FrameworkB.framework/FrameworkB
0x00000001ba000000 -        0x00000001bb3fffff UIKitCore arm64  <a1b2c3d4e5f60718293a4b5c6d7e8f90> /System/Library/PrivateFrameworks/UIKitCore.framework/UIKitCore`

const myAppUUID = "219132BB-C2D0-3CC9-AABD-D0DF0ED9AB2D"

var testArchive = Archive{
	BCSymbolMaps: "/archive/BCSymbolMaps",
	DSYMs:        "/archive/dSYMs",
}

// fakeDsymutil returns canned output per dSYM path and counts calls
type fakeDsymutil struct {
	mu      sync.Mutex
	outputs map[string]string
	err     error
	calls   map[string]int
}

func (f *fakeDsymutil) Deobfuscate(ctx context.Context, symbolMaps, dsym string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[dsym]++
	return f.outputs[dsym], f.err
}

func (f *fakeDsymutil) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// fakeAtos answers every lookup with the same output
type fakeAtos struct {
	mu   sync.Mutex
	out  string
	err  error
	reqs []AddressRequest
}

func (f *fakeAtos) Resolve(ctx context.Context, req AddressRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.out, f.err
}

func (f *fakeAtos) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}
