// Package script runs Lua automation scripts against a session.
//
// Scripts see a global deltabin table and a global arg table holding the
// command line arguments. The io, os, debug and package libraries are not
// available.
//
//	deltabin.open(arg[1])
//	local hits = deltabin.find_hex("DE AD BE EF")
//	for _, pos in ipairs(hits) do
//	    deltabin.overwrite(pos, "\0\0\0\0")
//	end
//	if deltabin.modified() then
//	    deltabin.save()
//	end
package script
