/*
 * doc.go, part of qmmm.
 *
 * Copyright 2026 the goChem authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

/*Package qmtraj writes and reads trajectories of a QM region, with the
QM energy of each frame. The format is a variant of goChem's simple
trajectory format (stf), compressed with z-standard (zstd).

The file starts with a header of key=value lines, which must contain the
precision ("prec", a non-negative integer), and ends with a line starting
with "**", one or more spaces, and the number of atoms per frame. The
writer also stores the element symbols, the layer and the method there,
when given.

After the header, each frame has one line per atom with 3 integers: the
x, y and z coordinates in Angstrom, multiplied by 10 to the power of the
precision and rounded. The frame ends with a line starting with "*",
followed by the QM energy of the frame in kJ/mol and, optionally, the 9
components of the box vectors in Angstrom.

The coordinates are the shifted ones, so the QM region is never split
by the periodic boundaries.
*/
package qmtraj
