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

/*Package qmmm couples a quantum-mechanical (QM) region to the classical
(MM) atoms of a molecular dynamics simulation. The QM energies and gradients
are obtained from external quantum chemistry programs, through the qm
package, and added to the forces of the classical force field.



	**Capabilities**


    Classifies the atoms of a topology into one QM layer (Normal scheme) or
	several nested layers (Layered, ONIOM-like scheme). In the Layered
	scheme, boundary virtual sites constructed from two atoms of the same
	layer are removed.

    Computes every step the periodic shifts that bring the QM atoms into
	one image, and, in the Normal scheme, the MM atoms that embed the QM
	region as point charges, from a QM pair list.

    Combines partial embedding sets found by several execution units into
	one, independently of the order of the units.

    Adds the QM forces and shift forces to the global buffers, only after
	all the calculations of the step succeeded. In the Layered scheme, the
	energy is the sum, over each layer but the last, of the layer at its own
	method minus the layer at the method of the next layer, plus the
	energy of the last layer.

    Keeps the charges of the classical force field as derived values: the
	QM atoms have zero charge in the Normal scheme.

Energies are in kJ/mol, distances in nm and forces in kJ/mol/nm.

*/
package qmmm
